package main

import (
	"fmt"

	"github.com/Domenick1991/garagebooking/internal/domain"
	"github.com/Domenick1991/garagebooking/internal/pricing"
	"github.com/Domenick1991/garagebooking/internal/vehicle"
	"github.com/spf13/cobra"
)

func newQuoteCmd(load loader) *cobra.Command {
	var (
		service      string
		registration string
		capacity     int
		fuel         string
		combo        bool
	)

	cmd := &cobra.Command{
		Use:   "quote",
		Short: "Price a service for a vehicle without booking it",
		Example: `  garagebooking quote --service full --registration AB12CDE --combo
  garagebooking quote --service interim --cc 1998 --fuel diesel`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := load()
			if err != nil {
				return err
			}
			engine := pricing.NewEngine(cfg.Pricing)

			v := domain.VehicleAttributes{EngineCapacity: capacity, FuelType: domain.ParseFuelType(fuel)}
			if registration != "" {
				resolver := vehicle.NewFallbackResolver(vehicle.WithTimeout(vehicle.NewRemoteResolver(cfg.Registry), cfg.Registry.Timeout), log)
				v = resolver.Resolve(contextOrBackground(cmd), registration)
				if capacity > 0 {
					v.EngineCapacity = capacity
				}
				if fuel != "" {
					v.FuelType = domain.ParseFuelType(fuel)
				}
			}

			var sel *domain.ServiceSelection
			if combo {
				sel = &domain.ServiceSelection{Combo: true}
			}
			price, err := engine.Quote(service, v.EngineCapacity, v.FuelType, sel)
			if err != nil {
				return err
			}
			key, _ := engine.ServiceKey(service)

			out := cmd.OutOrStdout()
			if registration != "" {
				fmt.Fprintf(out, "vehicle:  %s, %dcc %s", v.Descriptor(), v.EngineCapacity, v.FuelType)
				if v.UsingMockData {
					fmt.Fprint(out, " (estimated)")
				}
				fmt.Fprintln(out)
			}
			fmt.Fprintf(out, "service:  %s\n", engine.ServiceName(key))
			if combo {
				fmt.Fprintf(out, "combo:    yes (-%s)\n", engine.Discount(key).Format(cfg.Booking.Currency))
			}
			fmt.Fprintf(out, "price:    %s\n", price.Format(cfg.Booking.Currency))
			return nil
		},
	}
	cmd.Flags().StringVar(&service, "service", "", "service key or name")
	cmd.Flags().StringVar(&registration, "registration", "", "registration to look up")
	cmd.Flags().IntVar(&capacity, "cc", 0, "engine capacity override")
	cmd.Flags().StringVar(&fuel, "fuel", "", "fuel type override")
	cmd.Flags().BoolVar(&combo, "combo", false, "add the MOT combo")
	_ = cmd.MarkFlagRequired("service")
	return cmd
}
