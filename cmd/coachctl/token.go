// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/linuxfoundation/lfx-v2-coach-service/internal/infrastructure/video"
)

func newTokenCmd(deps *dependencies) *cobra.Command {
	var ttl time.Duration
	cmd := &cobra.Command{
		Use:   "token <user-id>",
		Short: "Mint a video provider token for a user",
		Long:  "Mint a call token for a user. The user must already be registered with the provider to join calls.",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			if err := deps.cfg.ValidateVideo(); err != nil {
				return err
			}
			token, err := video.NewTokenIssuer(deps.cfg.Video.APISecret).UserToken(args[0], ttl)
			if err != nil {
				return fmt.Errorf("minting token: %w", err)
			}
			enc := json.NewEncoder(deps.out)
			enc.SetIndent("", "  ")
			return enc.Encode(token)
		},
	}
	cmd.Flags().DurationVar(&ttl, "ttl", time.Hour, "token lifetime")
	return cmd
}

func newSignWebhookCmd(deps *dependencies) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sign-webhook [file]",
		Short: "Print the webhook signature for a payload",
		Long:  "Print the signature the video provider would send for the payload in file, or stdin when no file is given. Useful for replaying webhooks against a local service.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			if err := deps.cfg.ValidateVideo(); err != nil {
				return err
			}
			var (
				body []byte
				err  error
			)
			if len(args) == 1 && args[0] != "-" {
				body, err = os.ReadFile(args[0])
			} else {
				body, err = io.ReadAll(deps.in)
			}
			if err != nil {
				return fmt.Errorf("reading payload: %w", err)
			}
			verifier := video.NewWebhookVerifier(deps.cfg.Video.APIKey, deps.cfg.Video.APISecret)
			fmt.Fprintln(deps.out, verifier.Sign(body))
			return nil
		},
	}
	return cmd
}
