package main

import (
	"context"
	"io"

	"github.com/spf13/cobra"
	pb "github.com/vulpemventures/cosigner/api-spec/relay/v1"
)

var (
	relayStatuses []string

	relayPublishCmd = &cobra.Command{
		Use:   "publish <payload>",
		Short: "publish an intent to the relay",
		Long: "this command hands off the given intent payload (- to read " +
			"from stdin) to the relay, merging its signatures into the stored " +
			"copy if any",
		Args: cobra.ExactArgs(1),
		RunE: relayPublish,
	}
	relayGetCmd = &cobra.Command{
		Use:   "get <id>",
		Short: "fetch an intent from the relay",
		Args:  cobra.ExactArgs(1),
		RunE:  relayGet,
	}
	relayListCmd = &cobra.Command{
		Use:   "list",
		Short: "list the intents stored by the relay",
		RunE:  relayList,
	}
	relaySubmitCmd = &cobra.Command{
		Use:   "submit <id>",
		Short: "let the relay submit a complete intent",
		Args:  cobra.ExactArgs(1),
		RunE:  relaySubmit,
	}
	relayInfoCmd = &cobra.Command{
		Use:   "info",
		Short: "get info about the relay",
		RunE:  relayInfo,
	}
	relayWatchCmd = &cobra.Command{
		Use:   "watch",
		Short: "stream the events of the relay mailbox",
		RunE:  relayWatch,
	}
	relayCmd = &cobra.Command{
		Use:   "relay",
		Short: "interact with the cosigner relay",
		Long: "this command lets you park partially signed intents on a " +
			"running cosigner relay, where the counterparty can fetch, sign " +
			"and submit them",
	}
)

func init() {
	relayListCmd.Flags().StringArrayVar(
		&relayStatuses, "status", nil,
		"filter by status (pending, complete, submitted, rejected), repeatable",
	)

	relayCmd.AddCommand(
		relayPublishCmd, relayGetCmd, relayListCmd, relaySubmitCmd,
		relayInfoCmd, relayWatchCmd,
	)
}

func relayPublish(_ *cobra.Command, args []string) error {
	payload, err := readPayload(args[0])
	if err != nil {
		return err
	}

	client, cleanup, err := getRelayClient()
	if err != nil {
		return err
	}
	defer cleanup()

	ctx, cancel := newContext()
	defer cancel()

	reply, err := client.PublishIntent(ctx, &pb.PublishIntentRequest{
		Payload: string(payload),
	})
	if err != nil {
		return err
	}
	return printJSON(reply)
}

func relayGet(_ *cobra.Command, args []string) error {
	client, cleanup, err := getRelayClient()
	if err != nil {
		return err
	}
	defer cleanup()

	ctx, cancel := newContext()
	defer cancel()

	reply, err := client.GetIntent(ctx, &pb.GetIntentRequest{Id: args[0]})
	if err != nil {
		return err
	}
	return printJSON(reply)
}

func relayList(_ *cobra.Command, _ []string) error {
	client, cleanup, err := getRelayClient()
	if err != nil {
		return err
	}
	defer cleanup()

	ctx, cancel := newContext()
	defer cancel()

	reply, err := client.ListIntents(ctx, &pb.ListIntentsRequest{
		Statuses: relayStatuses,
	})
	if err != nil {
		return err
	}
	return printJSON(reply)
}

func relaySubmit(_ *cobra.Command, args []string) error {
	client, cleanup, err := getRelayClient()
	if err != nil {
		return err
	}
	defer cleanup()

	ctx, cancel := newContext()
	defer cancel()

	reply, err := client.SubmitIntent(ctx, &pb.SubmitIntentRequest{Id: args[0]})
	if err != nil {
		return err
	}
	return printJSON(reply)
}

func relayInfo(_ *cobra.Command, _ []string) error {
	client, cleanup, err := getRelayClient()
	if err != nil {
		return err
	}
	defer cleanup()

	ctx, cancel := newContext()
	defer cancel()

	reply, err := client.GetInfo(ctx, &pb.GetInfoRequest{})
	if err != nil {
		return err
	}
	return printJSON(reply)
}

func relayWatch(_ *cobra.Command, _ []string) error {
	client, cleanup, err := getRelayClient()
	if err != nil {
		return err
	}
	defer cleanup()

	stream, err := client.IntentNotifications(
		context.Background(), &pb.IntentNotificationsRequest{},
	)
	if err != nil {
		return err
	}

	for {
		event, err := stream.Recv()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if err := printJSON(event); err != nil {
			return err
		}
	}
}
