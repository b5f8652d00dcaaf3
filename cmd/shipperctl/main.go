package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"gitlab.ozon.dev/pupkingeorgij/shopsync/internal/api"
	"gitlab.ozon.dev/pupkingeorgij/shopsync/internal/auth"
	"gitlab.ozon.dev/pupkingeorgij/shopsync/internal/config"
	"gitlab.ozon.dev/pupkingeorgij/shopsync/internal/logger"
	"gitlab.ozon.dev/pupkingeorgij/shopsync/internal/mapview"
	"gitlab.ozon.dev/pupkingeorgij/shopsync/internal/tracking"
)

const commandTimeout = 30 * time.Second

func main() {
	cfg := config.Load()
	zlog := logger.New()
	defer func() { _ = zlog.Sync() }()

	creds, err := auth.NewStore(cfg.CredentialsFile)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Cannot open credentials file:", err)
		os.Exit(1)
	}

	client := api.NewClient(cfg.APIBaseURL, creds, zlog)
	locator := tracking.NewCommandGeolocator(cfg.GeolocateCommand)
	svc := tracking.NewService(client, locator, creds, zlog)
	scenes := mapview.NewBuilder(mapview.NewHTTPRouter(cfg.RoutingBaseURL, cfg.RoutingAPIKey), zlog)

	rootCmd := &cobra.Command{
		Use:           "shipperctl",
		Short:         "Shipper console for the storefront backend",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(
		loginCmd(client, creds),
		logoutCmd(creds),
		trackCmd(svc, scenes, cfg.SceneOutFile),
		reportLocationCmd(svc),
		markShippedCmd(svc),
		redeliverCmd(svc),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loginCmd(client *api.Client, creds *auth.Store) *cobra.Command {
	var username, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and store the bearer token.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), commandTimeout)
			defer cancel()

			token, err := client.Login(ctx, username, password)
			if err != nil {
				return fmt.Errorf("login: %w", err)
			}

			userID, err := auth.UserIDFromToken(token)
			if err != nil {
				zap.L().Warn("Token carries no identity claim", zap.Error(err))
			}

			if err := creds.Save(auth.Credentials{Token: token, UserID: userID, Username: username}); err != nil {
				return fmt.Errorf("store credentials: %w", err)
			}

			cmd.Printf("Logged in as %s\n", username)
			return nil
		},
	}

	cmd.Flags().StringVarP(&username, "username", "u", "", "account name")
	cmd.Flags().StringVarP(&password, "password", "p", "", "account password")
	_ = cmd.MarkFlagRequired("username")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func logoutCmd(creds *auth.Store) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Drop the stored credential.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return creds.Clear()
		},
	}
}

func trackCmd(svc *tracking.Service, scenes *mapview.Builder, sceneOutFile string) *cobra.Command {
	return &cobra.Command{
		Use:   "track <orderID>",
		Short: "Show shipper-to-delivery distance and write the route map.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			orderID, err := parseOrderID(args[0])
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), commandTimeout)
			defer cancel()

			view, err := svc.LoadTracking(ctx, orderID)
			if errors.Is(err, tracking.ErrShipperNotFound) {
				cmd.Println("No shipper is assigned to this order yet.")
				return nil
			}
			if err != nil {
				return fmt.Errorf("load tracking: %w", err)
			}

			cmd.Printf("Order %d, shipper %d\n", orderID, view.ShipperID)
			cmd.Printf("Distance to delivery address: %s\n", view.DistanceText)

			scene := scenes.BuildScene(ctx, view.Result.UserLocation, view.Result.ShippingLocation)
			if len(scene.Route) == 0 {
				cmd.Println("Route unavailable, map shows markers only.")
			}
			if err := writeScene(scene, sceneOutFile); err != nil {
				return err
			}
			cmd.Printf("Map written to %s\n", sceneOutFile)
			return nil
		},
	}
}

func reportLocationCmd(svc *tracking.Service) *cobra.Command {
	return &cobra.Command{
		Use:   "report-location <orderID>",
		Short: "Report the device's current position for an order.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			orderID, err := parseOrderID(args[0])
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), commandTimeout)
			defer cancel()

			if err := svc.ReportLocation(ctx, orderID); err != nil {
				return err
			}
			cmd.Println("Location reported.")
			return nil
		},
	}
}

func markShippedCmd(svc *tracking.Service) *cobra.Command {
	return &cobra.Command{
		Use:   "mark-shipped <orderID>",
		Short: "Mark an order as shipped.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			orderID, err := parseOrderID(args[0])
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), commandTimeout)
			defer cancel()

			if err := svc.MarkShipped(ctx, orderID); err != nil {
				return err
			}
			cmd.Println("Order marked as shipped.")
			return nil
		},
	}
}

func redeliverCmd(svc *tracking.Service) *cobra.Command {
	var reason string

	cmd := &cobra.Command{
		Use:   "redeliver <orderID>",
		Short: "Schedule a redelivery attempt.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			orderID, err := parseOrderID(args[0])
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), commandTimeout)
			defer cancel()

			if err := svc.Redeliver(ctx, orderID, reason); err != nil {
				return err
			}
			cmd.Println("Redelivery scheduled.")
			return nil
		},
	}

	cmd.Flags().StringVar(&reason, "reason", "", "why the delivery did not complete")
	_ = cmd.MarkFlagRequired("reason")
	return cmd
}

func parseOrderID(raw string) (int64, error) {
	orderID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid order id %q", raw)
	}
	return orderID, nil
}

func writeScene(scene *mapview.Scene, path string) error {
	data, err := scene.GeoJSON()
	if err != nil {
		return fmt.Errorf("encode map scene: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write map scene: %w", err)
	}
	return nil
}
