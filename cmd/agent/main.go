package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"ieso-demand-agent/internal/agent"
	"ieso-demand-agent/internal/config"
	"ieso-demand-agent/internal/quality"
	"ieso-demand-agent/internal/repository"
	"ieso-demand-agent/internal/services"
	"ieso-demand-agent/pkg/database"
	"ieso-demand-agent/pkg/logging"
	"ieso-demand-agent/pkg/metrics"
)

// usage prints the interactive command reference.
func usage() {
	fmt.Println("Commands:")
	fmt.Println("  tools                                      list registered tools")
	fmt.Println("  <tool>                                     run a tool with no arguments")
	fmt.Println("  <tool> <start> <end>                       run a tool over a date range (YYYY-MM-DD)")
	fmt.Println("  help                                       show this help")
	fmt.Println("  exit | quit                                leave the session")
	fmt.Println()
	fmt.Println("Examples:")
	fmt.Println("  check_data_freshness")
	fmt.Println("  validate_data_quality 2024-01-01 2024-01-31")
	fmt.Println("  calculate_demand_statistics 2024-06-01 2024-06-30")
	fmt.Println("  query_demand_data")
}

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Keep the interactive session quiet unless asked otherwise.
	logger := logging.NewStructuredLogger("demand-agent", "1.0.0", logging.ParseLevel(cfg.Logging.Level))

	ctx := context.Background()

	// Initialize metrics collector
	metricsCollector := metrics.NewCollector("demand_agent_cli")

	// Initialize database
	dbConfig := &database.Config{
		Host:            cfg.Database.Host,
		Port:            cfg.Database.Port,
		User:            cfg.Database.User,
		Password:        cfg.Database.Password,
		Database:        cfg.Database.Database,
		SSLMode:         cfg.Database.SSLMode,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.Database.ConnMaxIdleTime,
	}

	db, err := database.NewPostgresDB(dbConfig, logger, metricsCollector)
	if err != nil {
		logger.Fatal(ctx, "[AGENT_ERROR] Failed to connect to database", logging.Fields{}, err)
	}
	defer db.Close()

	// Wire the tool registry
	demandRepo := repository.NewDemandRepository(db, logger, metricsCollector)
	engine := quality.NewEngine(quality.DefaultConfig(), logger)
	demandService := services.NewDemandService(demandRepo, engine, logger, metricsCollector)
	registry := agent.NewRegistry(demandService, logger, metricsCollector)

	fmt.Println(strings.Repeat("=", 80))
	fmt.Println("IESO DEMAND DATA AGENT")
	fmt.Println(strings.Repeat("=", 80))
	fmt.Println("Ontario electricity demand: quality validation, statistics, and freshness.")
	fmt.Println("Type 'help' for commands, 'exit' to quit.")
	fmt.Println()

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("demand> ")
		if !scanner.Scan() {
			break
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		fields := strings.Fields(line)
		command := fields[0]

		switch command {
		case "exit", "quit":
			fmt.Println("Goodbye.")
			return

		case "help":
			usage()
			continue

		case "tools":
			for _, name := range agent.AllTools() {
				fmt.Printf("  %s\n", name)
			}
			continue
		}

		req := agent.ToolRequest{}
		if len(fields) >= 3 {
			req.StartDate = fields[1]
			req.EndDate = fields[2]
		}

		result := registry.Dispatch(ctx, agent.ToolName(command), req)

		output, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to render result: %v\n", err)
			continue
		}
		fmt.Println(string(output))
	}

	if err := scanner.Err(); err != nil {
		fmt.Fprintf(os.Stderr, "Input error: %v\n", err)
		os.Exit(1)
	}
}
