package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/jengzang/itinerary-backend-go/internal/api"
	"github.com/jengzang/itinerary-backend-go/internal/config"
	"github.com/jengzang/itinerary-backend-go/internal/database"
	"github.com/jengzang/itinerary-backend-go/internal/middleware"
	"github.com/jengzang/itinerary-backend-go/internal/planning"
	"github.com/jengzang/itinerary-backend-go/internal/repository"
	"github.com/jengzang/itinerary-backend-go/internal/service"
)

var (
	requestFile string
	outFile     string
	seed        int64
	dbPath      string

	tokenSubject string
	tokenTTL     time.Duration
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Plan an itinerary from a YAML request",
	Long: `Reads a YAML itinerary request and prints the planned itinerary as JSON.
Without --db only the attractions listed in the request are considered.`,
	Args: cobra.NoArgs,
	RunE: runGenerate,
}

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue a bearer token for the API",
	Args:  cobra.NoArgs,
	RunE:  runToken,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return api.Serve(config.Load())
	},
}

func init() {
	generateCmd.Flags().StringVarP(&requestFile, "request", "r", "", "YAML request file (required)")
	generateCmd.Flags().StringVarP(&outFile, "out", "o", "", "write the itinerary to this file instead of stdout")
	generateCmd.Flags().Int64Var(&seed, "seed", 0, "ACO random seed (overrides ACO_SEED)")
	generateCmd.Flags().StringVar(&dbPath, "db", "", "attraction catalogue database; itineraries are saved there too")
	_ = generateCmd.MarkFlagRequired("request")

	tokenCmd.Flags().StringVar(&tokenSubject, "subject", "", "token subject (required)")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 24*time.Hour, "token lifetime")
	_ = tokenCmd.MarkFlagRequired("subject")

	rootCmd.AddCommand(generateCmd, tokenCmd, serveCmd)
}

// readRequest decodes a YAML itinerary request
func readRequest(r io.Reader) (service.GenerateInput, error) {
	var in service.GenerateInput
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&in); err != nil {
		return in, fmt.Errorf("failed to decode request: %w", err)
	}
	return in, nil
}

// generate plans in and writes the itinerary as indented JSON to w
func generate(ctx context.Context, cfg *config.Config, in service.GenerateInput, source planning.PoiSource, store *repository.ItineraryRepository, w io.Writer) error {
	strategy, err := config.LoadStrategy(cfg.StrategyFile)
	if err != nil {
		return err
	}
	planner, err := api.NewPlanner(cfg, strategy, source)
	if err != nil {
		return err
	}

	it, err := service.NewItineraryService(planner, store).Generate(ctx, in)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(it)
}

func runGenerate(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	if cmd.Flags().Changed("seed") {
		cfg.ACOSeed = seed
	}

	f, err := os.Open(requestFile)
	if err != nil {
		return fmt.Errorf("failed to open request: %w", err)
	}
	defer f.Close()
	in, err := readRequest(f)
	if err != nil {
		return err
	}

	var (
		source planning.PoiSource = planning.StaticSource(in.Attractions)
		store  *repository.ItineraryRepository
	)
	if dbPath != "" {
		conn, err := database.Open(database.Config{Path: dbPath, Migrate: true})
		if err != nil {
			return err
		}
		defer conn.Close()
		source = repository.NewPOIRepository(conn)
		store = repository.NewItineraryRepository(conn)
	}

	out := cmd.OutOrStdout()
	if outFile != "" {
		file, err := os.Create(outFile)
		if err != nil {
			return fmt.Errorf("failed to create output: %w", err)
		}
		defer file.Close()
		out = file
	}

	if err := generate(cmd.Context(), cfg, in, source, store, out); err != nil {
		return err
	}
	if outFile != "" {
		log.Printf("Itinerary written to %s", outFile)
	}
	return nil
}

func runToken(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	token, err := middleware.IssueToken(cfg.JWTSecret, tokenSubject, tokenTTL)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), token)
	return nil
}
