package cmd

import (
	"fmt"
	"net/http"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/v2x-tools/scenedex/internal/dirfs"
	"github.com/v2x-tools/scenedex/internal/family"
	"github.com/v2x-tools/scenedex/internal/server"
	"github.com/v2x-tools/scenedex/internal/session"
)

var serveAddr string

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "127.0.0.1:8045", "listen address")
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the catalog over HTTP",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		log := newLogger()
		abs, err := filepath.Abs(rootDir)
		if err != nil {
			return fmt.Errorf("resolve root: %w", err)
		}

		reg := prometheus.NewRegistry()
		sess := session.New(reg)
		store := family.NewStore(sess, log)
		if err := store.Open(dirfs.FromOS(abs)); err != nil {
			return fmt.Errorf("open root %s: %w", abs, err)
		}

		srv := server.New(store, sess, log, reg)
		log.Info("listening", "addr", serveAddr, "root", abs)
		return http.ListenAndServe(serveAddr, srv.Handler())
	},
}
