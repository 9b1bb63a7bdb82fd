package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/raf924/rocketchat/pkg/config/connector"
	"github.com/raf924/rocketchat/pkg/config/rocketchat"
	cnt "github.com/raf924/rocketchat/pkg/connector"
	"github.com/raf924/rocketchat/pkg/realtime"
	"github.com/spf13/cobra"
)

var (
	cfgFile string
	verbose bool

	config connector.Config
)

var rootCmd = &cobra.Command{
	Use:           "rocketchat-relay",
	Short:         "Relay a Rocket.Chat server to a command bot",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		config, err = connector.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if verbose {
			if m, ok := config.Connection["rocketchat"].(map[interface{}]interface{}); ok {
				m["verbose"] = true
			}
		}
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		c, err := cnt.NewConnector(config)
		if err != nil {
			return err
		}
		if err := c.Start(); err != nil {
			return err
		}
		log.Println("connected as", config.Name)
		select {
		case <-c.Done():
			return c.Err()
		case <-ctx.Done():
			c.Stop()
			<-c.Done()
			return nil
		}
	},
}

var roomsCmd = &cobra.Command{
	Use:   "rooms",
	Short: "List the rooms the configured user belongs to",
	RunE: func(cmd *cobra.Command, args []string) error {
		rc, err := rocketchat.Decode(config.Connection["rocketchat"])
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		client := realtime.NewClient(realtime.WithVerbose(rc.Verbose))
		if err := client.Connect(ctx, rc.Address); err != nil {
			return err
		}
		defer client.Close()
		username := rc.Username
		if username == "" {
			username = config.Name
		}
		if rc.Password != "" {
			_, err = client.Authenticate(ctx, username, rc.Password)
		} else {
			_, err = client.Reauthenticate(ctx, rc.Token)
		}
		if err != nil {
			return err
		}
		channels, err := client.GetChannels(ctx)
		if err != nil {
			return err
		}
		for _, channel := range channels {
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\n", channel.ID, channel.Type, channel.Name)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "connector.yaml", "connector config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log every frame sent and received")
	rootCmd.AddCommand(roomsCmd)
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
