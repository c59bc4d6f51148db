package main

import (
	"context"
	"encoding/json"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/cavena/mobility-cli/internal/model"
	"github.com/cavena/mobility-cli/internal/store"
)

var geocodeNoCache bool

var geocodeCmd = &cobra.Command{
	Use:   "geocode <address>",
	Short: "Resolve a single address through the configured providers",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		address := strings.Join(args, " ")

		st := storeOrNil(ctx, geocodeNoCache)
		if st != nil {
			defer st.Close()
		}

		resolver, err := buildResolver(st)
		if err != nil {
			return err
		}

		point, err := resolver.Resolve(ctx, address)
		if err != nil {
			return eris.Wrapf(err, "geocode %q", address)
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(struct {
			Address string         `json:"address"`
			Point   model.GeoPoint `json:"point"`
		}{Address: address, Point: point})
	},
}

// storeOrNil opens the run store for its geocode cache, degrading to no
// cache when the store is unavailable.
func storeOrNil(ctx context.Context, skip bool) store.Store {
	if skip {
		return nil
	}
	st, err := initStore(ctx)
	if err != nil {
		zap.L().Warn("store unavailable, continuing without persistent cache", zap.Error(err))
		return nil
	}
	return st
}

func init() {
	geocodeCmd.Flags().BoolVar(&geocodeNoCache, "no-cache", false, "bypass the persistent geocode cache")
	rootCmd.AddCommand(geocodeCmd)
}
