package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/dperrym/ipsentry/internal/cache"
	"github.com/dperrym/ipsentry/internal/config"
	"github.com/dperrym/ipsentry/internal/database"
	"github.com/dperrym/ipsentry/internal/models"
	"github.com/dperrym/ipsentry/internal/services"
)

// blockip adds an address to the denylist from the command line:
//
//	blockip -reason "scraper" 203.0.113.7
func main() {
	reason := flag.String("reason", "Manually blocked", "reason for blocking the IP")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintf(os.Stderr, "usage: %s [-reason text] <ip-address>\n", os.Args[0])
		os.Exit(2)
	}
	ipAddress := flag.Arg(0)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	db, err := database.Open(cfg.DatabasePath)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	if err := db.AutoMigrate(&models.BlockedIP{}); err != nil {
		log.Fatalf("auto migrate: %v", err)
	}

	blocklist := services.NewBlockListService(db, cache.NewMemoryCache(), cfg.BlockCacheTTL)
	blocked, created, err := blocklist.Block(ipAddress, *reason)
	if err != nil {
		log.Fatalf("block IP address: %v", err)
	}

	if !created {
		fmt.Printf("IP address %s is already blocked\n", blocked.IPAddress)
		return
	}

	fmt.Printf("Successfully blocked IP address: %s\n", blocked.IPAddress)
	if blocked.Reason != nil {
		fmt.Printf("Reason: %s\n", *blocked.Reason)
	}
	fmt.Printf("Created at: %s\n", blocked.CreatedAt.Format("2006-01-02 15:04:05"))
}
