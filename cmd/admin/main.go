package main

import (
	"chatguard/backend/internal/antispam"
	"chatguard/backend/internal/api/handler"
	"chatguard/backend/internal/config"
	"chatguard/backend/internal/storage"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

const usage = `Usage: admin <command> [args]

Commands:
  unblock <room_id>                   lift a temporary block
  reset-spam <room_id>                set the spam score to zero
  status <room_id>                    print the status summary
  confirm-payment <room_id> [false]   set (or clear) the payment flag
  token <subject> [ttl_hours]         issue an admin API token`

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("WARNING: Error loading .env file")
	}

	if len(os.Args) < 2 {
		fmt.Println(usage)
		os.Exit(1)
	}
	command := os.Args[1]

	if command == "token" {
		issueToken(os.Args[2:])
		return
	}

	if len(os.Args) < 3 {
		fmt.Println(usage)
		os.Exit(1)
	}
	roomID := os.Args[2]

	rl, err := config.LoadRateLimit()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	db, err := gorm.Open(postgres.Open(config.DatabaseDSN()), &gorm.Config{})
	if err != nil {
		log.Fatalf("failed to connect database: %v", err)
	}

	// No Redis: status events of CLI changes are not pushed.
	engine := antispam.NewService(storage.NewStorageService(db, nil), rl)
	ctx := context.Background()

	switch command {
	case "unblock":
		exitOnError(engine.Unblock(ctx, roomID))
		fmt.Printf("Room %s has been unblocked.\n", roomID)
	case "reset-spam":
		exitOnError(engine.ResetSpamScore(ctx, roomID))
		fmt.Printf("Spam score of room %s has been reset.\n", roomID)
	case "status":
		stats, err := engine.GetStatusSummary(ctx, roomID)
		exitOnError(err)
		out, _ := json.MarshalIndent(stats, "", "  ")
		fmt.Println(string(out))
	case "confirm-payment":
		confirmed := true
		if len(os.Args) > 3 {
			confirmed, err = strconv.ParseBool(os.Args[3])
			if err != nil {
				fmt.Println("Invalid flag. Please provide true or false.")
				os.Exit(1)
			}
		}
		room, err := engine.SetPaymentConfirmed(ctx, roomID, confirmed)
		exitOnError(err)
		fmt.Printf("Room %s payment: %s, status: %s.\n", roomID, room.PaymentStatus(), room.UserStatus)
	default:
		fmt.Println("Unknown command")
		fmt.Println(usage)
		os.Exit(1)
	}
}

func issueToken(args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: admin token <subject> [ttl_hours]")
		os.Exit(1)
	}
	ttl := 24 * time.Hour
	if len(args) > 1 {
		hours, err := strconv.Atoi(args[1])
		if err != nil || hours <= 0 {
			fmt.Println("Invalid ttl. Please provide a positive integer.")
			os.Exit(1)
		}
		ttl = time.Duration(hours) * time.Hour
	}

	token, err := handler.GenerateAdminToken([]byte(config.Get(config.EnvAdminJWTSecret)), args[0], ttl)
	if err != nil {
		log.Fatalf("Error issuing token: %v", err)
	}
	fmt.Println(token)
}

func exitOnError(err error) {
	if err == nil {
		return
	}
	if errors.Is(err, antispam.ErrNotFound) {
		fmt.Println("Room not found.")
		os.Exit(2)
	}
	log.Fatalf("Error: %v", err)
}
