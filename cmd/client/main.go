// Copyright (c) 2026 Verano. All rights reserved.
// Author: anh.pham.dev@gmail.com

// Command client is a small terminal storefront client.
//
// It demonstrates the session lifecycle end to end: credentials are
// exchanged for a token pair, the pair is persisted under the user's
// config directory, and the session manager silently rotates it while the
// process runs. Subsequent invocations resume the persisted session.
//
// # Usage
//
//	client register -username ana -email ana@example.com -password secret
//	client login -email ana@example.com -password secret
//	client whoami
//	client products [-category x] [-search y]
//	client buy -product <id> [-quantity n]
//	client orders
//	client logout
//
// The API base URL comes from VERANO_API_URL (default http://localhost:8080).
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/phamanh/verano/internal/client/api"
	"github.com/phamanh/verano/internal/client/session"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: client <register|login|logout|whoami|products|buy|orders> [flags]")
		os.Exit(2)
	}

	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	}))

	baseURL := os.Getenv("VERANO_API_URL")
	client := api.New(api.Config{BaseURL: baseURL})

	store := session.NewFileStore(sessionPath())
	manager := session.NewManager(client, store, log)
	defer manager.Close()

	// Keep the transport's bearer token in lockstep with the session.
	manager.OnChange(func(pair session.Pair) {
		client.SetAccessToken(pair.AccessToken)
	})

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := manager.Start(ctx); err != nil {
		fatal("resume session", err)
	}

	command, args := os.Args[1], os.Args[2:]
	if err := run(ctx, command, args, client, manager); err != nil {
		fatal(command, err)
	}
}

func run(ctx context.Context, command string, args []string, client *api.Client, manager *session.Manager) error {
	switch command {
	case "register":
		flags := flag.NewFlagSet("register", flag.ExitOnError)
		username := flags.String("username", "", "account username")
		email := flags.String("email", "", "account email")
		password := flags.String("password", "", "account password")
		_ = flags.Parse(args)

		credentials, err := client.Register(ctx, api.RegisterInput{
			Username:        *username,
			Email:           *email,
			Password:        *password,
			ConfirmPassword: *password,
		})
		if err != nil {
			return err
		}
		manager.Adopt(credentials)
		fmt.Printf("registered as %s\n", credentials.User.Username)
		return nil

	case "login":
		flags := flag.NewFlagSet("login", flag.ExitOnError)
		email := flags.String("email", "", "account email")
		password := flags.String("password", "", "account password")
		_ = flags.Parse(args)

		credentials, err := client.Login(ctx, *email, *password)
		if err != nil {
			return err
		}
		manager.Adopt(credentials)
		fmt.Printf("logged in as %s\n", credentials.User.Username)
		return nil

	case "logout":
		if err := manager.Logout(ctx); err != nil {
			return err
		}
		fmt.Println("logged out")
		return nil

	case "whoami":
		profile, err := client.Me(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("%s <%s> (%s)\n", profile.Username, profile.Email, profile.Role)
		return nil

	case "products":
		flags := flag.NewFlagSet("products", flag.ExitOnError)
		category := flags.String("category", "", "filter by category")
		search := flags.String("search", "", "free text search")
		_ = flags.Parse(args)

		products, meta, err := client.Products(ctx, api.ProductQuery{
			Category: *category,
			Search:   *search,
		})
		if err != nil {
			return err
		}
		for _, item := range products {
			fmt.Printf("%s  %-30s %10s  [%s]\n", item.ID, item.Name, cents(item.Price), item.Category)
		}
		fmt.Printf("page %d of %d (%d products)\n", meta.Page, meta.TotalPages, meta.Total)
		return nil

	case "buy":
		flags := flag.NewFlagSet("buy", flag.ExitOnError)
		productID := flags.String("product", "", "product id")
		quantity := flags.Int("quantity", 1, "quantity")
		_ = flags.Parse(args)

		created, err := client.CreateOrder(ctx, api.OrderInput{
			Items:         []api.OrderItemInput{{ProductID: *productID, Quantity: *quantity}},
			PaymentMethod: "card",
		})
		if err != nil {
			return err
		}
		fmt.Printf("order %s placed, total %s\n", created.ID, cents(created.Total))
		return nil

	case "orders":
		orders, _, err := client.Orders(ctx, 0, 0)
		if err != nil {
			return err
		}
		for _, placed := range orders {
			fmt.Printf("%s  %-10s %10s  %s\n", placed.ID, placed.Status, cents(placed.Total), placed.CreatedAt.Format(time.DateOnly))
		}
		return nil

	default:
		return fmt.Errorf("unknown command %q", command)
	}
}

// sessionPath places the persisted session under the user config directory,
// falling back to the working directory when none is available.
func sessionPath() string {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return ".verano-session.json"
	}
	return filepath.Join(configDir, "verano", "session.json")
}

func cents(amount int64) string {
	return fmt.Sprintf("$%d.%02d", amount/100, amount%100)
}

func fatal(scope string, err error) {
	fmt.Fprintf(os.Stderr, "%s: %v\n", scope, err)
	os.Exit(1)
}
