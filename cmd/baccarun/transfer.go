package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/sawpanic/baccarun/internal/config"
	"github.com/sawpanic/baccarun/internal/persistence/file"
	"github.com/sawpanic/baccarun/internal/session"
)

func newExportCmd() *cobra.Command {
	var storeDir, id, out string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write a stored session as a JSON snapshot",
		RunE: func(cmd *cobra.Command, args []string) error {
			if id == "" {
				return errors.New("--session is required")
			}
			store, err := file.NewStore(storeDir)
			if err != nil {
				return err
			}
			snap, err := store.Load(cmd.Context(), id)
			if err != nil {
				return err
			}
			data, err := session.MarshalSnapshot(snap)
			if err != nil {
				return err
			}
			if out == "" || out == "-" {
				_, err = cmd.OutOrStdout().Write(append(data, '\n'))
				return err
			}
			if err := os.WriteFile(out, data, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", out, err)
			}
			log.Info().Str("session", id).Str("file", out).Int("hands", len(snap.Sequence)).Msg("Session exported")
			return nil
		},
	}
	cmd.Flags().StringVar(&storeDir, "store", config.DefaultAppConfig().Storage.Dir, "Snapshot directory")
	cmd.Flags().StringVar(&id, "session", "", "Session id")
	cmd.Flags().StringVarP(&out, "out", "o", "", "Output file (default stdout)")
	return cmd
}

func newImportCmd() *cobra.Command {
	var storeDir, id, in string

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Load a JSON snapshot into the session store",
		Long:  "Validates a snapshot and stores it; an existing session with the same id is replaced",
		RunE: func(cmd *cobra.Command, args []string) error {
			if in == "" {
				return errors.New("--in is required")
			}
			data, err := os.ReadFile(in)
			if err != nil {
				return fmt.Errorf("read %s: %w", in, err)
			}
			snap, err := session.UnmarshalSnapshot(data)
			if err != nil {
				return err
			}
			if id != "" {
				snap.SessionID = id
			}

			engine, err := buildEngine(config.EngineConfig{})
			if err != nil {
				return err
			}
			s, err := session.FromSnapshot(snap, engine)
			if err != nil {
				return err
			}
			store, err := file.NewStore(storeDir)
			if err != nil {
				return err
			}
			if err := store.Save(cmd.Context(), s.Export()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), s.ID())
			log.Info().Str("session", s.ID()).Int("hands", s.Len()).Msg("Session imported")
			return nil
		},
	}
	cmd.Flags().StringVar(&storeDir, "store", config.DefaultAppConfig().Storage.Dir, "Snapshot directory")
	cmd.Flags().StringVar(&id, "session", "", "Store under this id instead of the snapshot's")
	cmd.Flags().StringVarP(&in, "in", "i", "", "Snapshot file")
	return cmd
}
