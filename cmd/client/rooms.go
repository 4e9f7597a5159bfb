package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"roomsync/internal/client"
	"roomsync/internal/storage"
)

var flagRemove bool

var roomsCmd = &cobra.Command{
	Use:   "rooms [room...]",
	Short: "List the saved room library, or remove rooms from it with --remove",
	RunE:  runRooms,
}

func init() {
	roomsCmd.Flags().BoolVar(&flagRemove, "remove", false, "remove the named rooms")
}

func runRooms(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	closeLogs := setupLogging(cfg, os.Stderr)
	defer closeLogs()

	ctx := context.Background()
	store, err := storage.Open(cfg.Store, cfg.DataDir)
	if err != nil {
		return err
	}
	defer store.Close()

	registry := client.NewRoomRegistry(store, nil, cfg.RegistryMaxSize)
	if err := registry.Load(ctx); err != nil {
		return err
	}
	if flagRemove {
		for _, room := range args {
			if err := registry.Remove(ctx, room); err != nil {
				return err
			}
		}
	}

	current, err := store.LoadCurrentRoom(ctx)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	for _, room := range registry.List() {
		marker := " "
		if room == current {
			marker = "*"
		}
		fmt.Fprintf(out, "%s %s\n", marker, room)
	}
	return nil
}
