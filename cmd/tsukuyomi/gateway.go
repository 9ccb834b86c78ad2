package main

import (
	"fmt"
	"net/http"

	"github.com/json-iterator/go"
	"github.com/spf13/cobra"

	"github.com/yonatandev1/tsukuyomi/log"
	"github.com/yonatandev1/tsukuyomi/rest"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type gatewayBot struct {
	URL               string `json:"url"`
	Shards            int    `json:"shards"`
	SessionStartLimit struct {
		Total          int `json:"total"`
		Remaining      int `json:"remaining"`
		ResetAfter     int `json:"reset_after"`
		MaxConcurrency int `json:"max_concurrency"`
	} `json:"session_start_limit"`
}

func newGatewayCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "gateway",
		Short: "Show the gateway address and the remaining session starts",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}

			data, err := rest.New(cfg.Token, restOptions(cfg)...).Make(cmd.Context(), "/gateway/bot", http.MethodGet, nil, nil)
			if err != nil {
				return err
			}

			var info gatewayBot
			if err := json.Unmarshal(data, &info); err != nil {
				return fmt.Errorf("decode gateway info: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s Gateway %s\n", log.SUCCESS, highlight(info.URL))
			fmt.Fprintf(out, "%s Recommended shards: %s\n", log.INFO, highlight(formatNumber(int64(info.Shards))))
			fmt.Fprintf(out, "%s Session starts left: %s/%s (max concurrency %d)\n", log.INFO,
				highlight(formatNumber(int64(info.SessionStartLimit.Remaining))),
				highlight(formatNumber(int64(info.SessionStartLimit.Total))),
				info.SessionStartLimit.MaxConcurrency,
			)
			return nil
		},
	}
}
