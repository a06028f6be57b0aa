package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"surge/pkg/logging"
	"surge/pkg/ring"
	"surge/pkg/store"

	"github.com/spf13/cobra"
)

func main() {
	var (
		endpoints []string
		vnodes    int
	)

	root := &cobra.Command{
		Use:          "surge-cli",
		Short:        "Inspect a surge scaling domain",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringSliceVar(&endpoints, "endpoints", []string{"localhost:2379"}, "etcd endpoints")
	root.PersistentFlags().IntVar(&vnodes, "virtual-nodes", ring.DefaultVirtualNodes, "ring fan-out, must match the daemon")

	instancesCmd := &cobra.Command{
		Use:   "instances",
		Short: "List registered worker instances",
		RunE: func(cmd *cobra.Command, args []string) error {
			registry, err := newRegistry(endpoints)
			if err != nil {
				return err
			}
			defer func() { _ = registry.Close() }()

			ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Second)
			defer cancel()
			instances, err := registry.ListInstances(ctx)
			if err != nil {
				return fmt.Errorf("list instances: %w", err)
			}

			if len(instances) == 0 {
				fmt.Println("no instances registered")
				return nil
			}
			for _, inst := range instances {
				fmt.Printf("%s\tregistered %s\n", inst.ID,
					time.Unix(inst.RegisteredAt, 0).Format(time.RFC3339))
			}
			return nil
		},
	}

	routeCmd := &cobra.Command{
		Use:   "route <key>",
		Short: "Resolve which instance owns a routing key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			registry, err := newRegistry(endpoints)
			if err != nil {
				return err
			}
			defer func() { _ = registry.Close() }()

			ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Second)
			defer cancel()
			instances, err := registry.ListInstances(ctx)
			if err != nil {
				return fmt.Errorf("list instances: %w", err)
			}

			rg := ring.New(vnodes)
			for _, inst := range instances {
				rg.AddNode(inst.ID)
			}

			node, ok := rg.Route(args[0])
			if !ok {
				fmt.Println("no instances registered; key cannot be routed")
				return nil
			}
			fmt.Printf("%s -> %s\n", args[0], node)
			return nil
		},
	}

	root.AddCommand(instancesCmd, routeCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRegistry(endpoints []string) (*store.EtcdRegistry, error) {
	logger, err := logging.New()
	if err != nil {
		return nil, err
	}
	registry, err := store.NewEtcdRegistry(logger, endpoints)
	if err != nil {
		return nil, fmt.Errorf("connect to etcd: %w", err)
	}
	return registry, nil
}
