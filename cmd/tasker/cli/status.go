package cli

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Check if the Tasker server is running",
		Long:  "Probe the HTTP health endpoints of a running Tasker server.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus()
		},
	}
}

func runStatus() error {
	port := viper.GetInt("server.port")
	if port == 0 {
		port = 8000
	}
	host := viper.GetString("server.host")
	if host == "" || host == "0.0.0.0" {
		host = "127.0.0.1"
	}

	client := &http.Client{Timeout: 2 * time.Second}

	healthAddr := fmt.Sprintf("http://%s:%d/healthz", host, port)
	resp, err := client.Get(healthAddr)
	if err != nil {
		fmt.Printf("Server is not responding at %s\n", healthAddr)
		return nil
	}
	resp.Body.Close()
	fmt.Printf("Server is running\n")
	fmt.Printf("  Health:  %s (%d)\n", healthAddr, resp.StatusCode)

	readyAddr := fmt.Sprintf("http://%s:%d/readyz", host, port)
	resp, err = client.Get(readyAddr)
	if err != nil {
		return nil
	}
	defer resp.Body.Close()

	var ready map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&ready); err == nil {
		fmt.Printf("  Ready:   %s (%d, database %s)\n", readyAddr, resp.StatusCode, ready["database"])
	} else {
		fmt.Printf("  Ready:   %s (%d)\n", readyAddr, resp.StatusCode)
	}
	return nil
}
