// nexusctl is a thin command line client for the generation API.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var apiBase string

func main() {
	root := &cobra.Command{
		Use:           "nexusctl",
		Short:         "Client for the video generation API",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&apiBase, "api", envOr("NEXUS_API", "http://localhost:8080"), "API base URL")

	root.AddCommand(
		generateCmd(),
		statusCmd(),
		downloadCmd(),
		historyCmd(),
		predictCmd(),
		seriesCmd(),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func generateCmd() *cobra.Command {
	var (
		platforms []string
		duration  int
		voice     string
		style     string
		wait      bool
	)
	cmd := &cobra.Command{
		Use:   "generate <brief>",
		Short: "Submit a generation job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			payload := map[string]any{
				"brief":          args[0],
				"platforma":      platforms,
				"dlugosc_sekund": duration,
			}
			if voice != "" {
				payload["glos"] = voice
			}
			if style != "" {
				payload["styl_wizualny"] = style
			}
			var job struct {
				SessionID string `json:"sesja_id"`
				Status    string `json:"status"`
			}
			if err := call(http.MethodPost, "/api/v1/wideo/generuj", payload, &job); err != nil {
				return err
			}
			fmt.Printf("queued %s\n", job.SessionID)
			if !wait {
				return nil
			}
			return waitForJob(job.SessionID)
		},
	}
	cmd.Flags().StringSliceVar(&platforms, "platform", []string{"tiktok"}, "target platforms")
	cmd.Flags().IntVar(&duration, "duration", 45, "video length in seconds")
	cmd.Flags().StringVar(&voice, "voice", "", "narration voice")
	cmd.Flags().StringVar(&style, "style", "", "visual style")
	cmd.Flags().BoolVar(&wait, "wait", false, "poll until the job finishes")
	return cmd
}

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status <sesja_id>",
		Short: "Show a job record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var raw json.RawMessage
			if err := call(http.MethodGet, "/api/v1/wideo/"+args[0]+"/status", nil, &raw); err != nil {
				return err
			}
			return printJSON(raw)
		},
	}
}

func downloadCmd() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "download <sesja_id>",
		Short: "Download the finished video",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := http.Get(apiBase + "/api/v1/wideo/" + args[0] + "/pobierz")
			if err != nil {
				return err
			}
			defer resp.Body.Close()
			if resp.StatusCode != http.StatusOK {
				return apiError(resp)
			}
			if out == "" {
				out = args[0] + ".mp4"
			}
			f, err := os.Create(out)
			if err != nil {
				return err
			}
			defer f.Close()
			n, err := io.Copy(f, resp.Body)
			if err != nil {
				return err
			}
			fmt.Printf("wrote %s (%d bytes)\n", out, n)
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "output", "o", "", "output file (default <sesja_id>.mp4)")
	return cmd
}

func historyCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			var raw json.RawMessage
			path := fmt.Sprintf("/api/v1/wideo/historia?limit=%d", limit)
			if err := call(http.MethodGet, path, nil, &raw); err != nil {
				return err
			}
			return printJSON(raw)
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "number of jobs")
	return cmd
}

func predictCmd() *cobra.Command {
	var (
		platforms []string
		duration  int
		hook      string
	)
	cmd := &cobra.Command{
		Use:   "predict <brief>",
		Short: "Score an idea without generating",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var raw json.RawMessage
			err := call(http.MethodPost, "/api/v1/wideo/wiralnosc", map[string]any{
				"brief":          args[0],
				"platforma":      platforms,
				"dlugosc_sekund": duration,
				"typ_haka":       hook,
			}, &raw)
			if err != nil {
				return err
			}
			return printJSON(raw)
		},
	}
	cmd.Flags().StringSliceVar(&platforms, "platform", []string{"tiktok"}, "target platforms")
	cmd.Flags().IntVar(&duration, "duration", 45, "video length in seconds")
	cmd.Flags().StringVar(&hook, "hook", "", "hook type")
	return cmd
}

func seriesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "series",
		Short: "Inspect narrative series",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List series",
		RunE: func(cmd *cobra.Command, args []string) error {
			var raw json.RawMessage
			if err := call(http.MethodGet, "/api/v1/serie/", nil, &raw); err != nil {
				return err
			}
			return printJSON(raw)
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "show <seria_id>",
		Short: "Show one series",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var raw json.RawMessage
			if err := call(http.MethodGet, "/api/v1/serie/"+args[0], nil, &raw); err != nil {
				return err
			}
			return printJSON(raw)
		},
	})
	return cmd
}

func waitForJob(sessionID string) error {
	for {
		var job struct {
			Status   string `json:"status"`
			Progress int    `json:"postep_procent"`
		}
		if err := call(http.MethodGet, "/api/v1/wideo/"+sessionID+"/status", nil, &job); err != nil {
			return err
		}
		fmt.Printf("%s %d%%\n", job.Status, job.Progress)
		switch job.Status {
		case "succeeded", "partial", "failed", "cancelled":
			return nil
		}
		time.Sleep(2 * time.Second)
	}
}

func call(method, path string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, apiBase+path, body)
	if err != nil {
		return err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return apiError(resp)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func apiError(resp *http.Response) error {
	var apiErr struct {
		Code    string `json:"kod"`
		Message string `json:"komunikat"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&apiErr); err == nil && apiErr.Message != "" {
		return fmt.Errorf("%s: %s", apiErr.Code, apiErr.Message)
	}
	return fmt.Errorf("unexpected status %d", resp.StatusCode)
}

func printJSON(raw json.RawMessage) error {
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return err
	}
	fmt.Println(buf.String())
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
