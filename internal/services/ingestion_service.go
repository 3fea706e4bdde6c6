package services

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"ieso-demand-agent/internal/models"
	"ieso-demand-agent/internal/repository"
	"ieso-demand-agent/pkg/logging"
	"ieso-demand-agent/pkg/metrics"
)

// IngestionService loads IESO hourly demand report files into the store.
// The reports are CSV with comment lines prefixed by a backslash, a header
// row, and data rows of Date, Hour, Market Demand, Ontario Demand.
type IngestionService struct {
	repo    repository.DemandRepository
	logger  *logging.StructuredLogger
	metrics *metrics.Collector
}

// IngestionResult contains ingestion statistics
type IngestionResult struct {
	TotalFiles        int
	TotalRecords      int
	SuccessfulRecords int
	FailedRecords     int
	Duration          time.Duration
	Errors            []string
}

// NewIngestionService creates a new ingestion service
func NewIngestionService(repo repository.DemandRepository, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) *IngestionService {
	return &IngestionService{
		repo:    repo,
		logger:  logger,
		metrics: metricsCollector,
	}
}

// IngestDirectory ingests all demand report files from a directory
func (s *IngestionService) IngestDirectory(ctx context.Context, dataDir string, batchSize int) (*IngestionResult, error) {
	startTime := time.Now()

	s.logger.Info(ctx, "[INGEST_START] Starting demand data ingestion", logging.Fields{
		"data_dir":   dataDir,
		"batch_size": batchSize,
		"stage":      "INITIALIZATION",
	})

	result := &IngestionResult{
		Errors: make([]string, 0),
	}

	files, err := filepath.Glob(filepath.Join(dataDir, "*.csv"))
	if err != nil {
		return nil, fmt.Errorf("failed to read directory: %w", err)
	}

	if len(files) == 0 {
		return nil, fmt.Errorf("no demand report files found in %s", dataDir)
	}

	result.TotalFiles = len(files)

	s.logger.Info(ctx, "[INGEST_FILES] Found demand report files", logging.Fields{
		"file_count": len(files),
		"stage":      "FILE_DISCOVERY",
	})

	for _, filePath := range files {
		fileResult, err := s.ingestFile(ctx, filePath, batchSize)
		if err != nil {
			errMsg := fmt.Sprintf("failed to ingest %s: %v", filePath, err)
			result.Errors = append(result.Errors, errMsg)
			s.logger.Error(ctx, "[INGEST_FILE_ERROR] File ingestion failed", logging.Fields{
				"file_path": filePath,
				"stage":     "FILE_PROCESSING",
			}, err)
			s.metrics.RecordIngestionError("file_error")
			continue
		}

		result.TotalRecords += fileResult.TotalRecords
		result.SuccessfulRecords += fileResult.SuccessfulRecords
		result.FailedRecords += fileResult.FailedRecords

		s.logger.Info(ctx, "[INGEST_FILE_SUCCESS] File ingested successfully", logging.Fields{
			"file_path":          filePath,
			"total_records":      fileResult.TotalRecords,
			"successful_records": fileResult.SuccessfulRecords,
			"failed_records":     fileResult.FailedRecords,
			"stage":              "FILE_COMPLETE",
		})
	}

	result.Duration = time.Since(startTime)
	s.metrics.IngestionDuration.Observe(result.Duration.Seconds())

	s.logger.Info(ctx, "[INGEST_COMPLETE] Demand data ingestion completed", logging.Fields{
		"total_files":        result.TotalFiles,
		"total_records":      result.TotalRecords,
		"successful_records": result.SuccessfulRecords,
		"failed_records":     result.FailedRecords,
		"duration_seconds":   result.Duration.Seconds(),
		"error_count":        len(result.Errors),
		"stage":              "COMPLETE",
	})

	return result, nil
}

// FileIngestionResult contains per-file ingestion statistics
type FileIngestionResult struct {
	TotalRecords      int
	SuccessfulRecords int
	FailedRecords     int
}

// ingestFile ingests a single demand report file
func (s *IngestionService) ingestFile(ctx context.Context, filePath string, batchSize int) (*FileIngestionResult, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	result := &FileIngestionResult{}
	batch := make([]models.DemandReading, 0, batchSize)

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		// IESO reports carry backslash-prefixed disclaimer lines and a
		// header row before the data.
		if line == "" || strings.HasPrefix(line, "\\") || strings.HasPrefix(line, "Date,") {
			continue
		}

		result.TotalRecords++

		reading, err := ParseReportLine(line)
		if err != nil {
			result.FailedRecords++
			s.metrics.RecordIngestionError("parse_error")
			continue
		}

		batch = append(batch, *reading)

		if len(batch) >= batchSize {
			if err := s.repo.InsertReadingsBatch(ctx, batch); err != nil {
				return nil, fmt.Errorf("failed to insert batch: %w", err)
			}
			result.SuccessfulRecords += len(batch)
			batch = batch[:0]
		}
	}

	if len(batch) > 0 {
		if err := s.repo.InsertReadingsBatch(ctx, batch); err != nil {
			return nil, fmt.Errorf("failed to insert final batch: %w", err)
		}
		result.SuccessfulRecords += len(batch)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading file: %w", err)
	}

	return result, nil
}

// ParseReportLine parses one data row from an IESO demand report.
// Format: YYYY-MM-DD,HOUR,MARKET_DEMAND,ONTARIO_DEMAND where HOUR is 1-24;
// hours are normalized to the 0-23 grid on the way in. Empty demand fields
// become nil readings rather than parse failures.
func ParseReportLine(line string) (*models.DemandReading, error) {
	parts := strings.Split(line, ",")
	if len(parts) != 4 {
		return nil, fmt.Errorf("invalid line format: expected 4 fields, got %d", len(parts))
	}

	date, err := time.Parse("2006-01-02", strings.TrimSpace(parts[0]))
	if err != nil {
		return nil, fmt.Errorf("invalid date: %w", err)
	}

	hour, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return nil, fmt.Errorf("invalid hour: %w", err)
	}
	if hour < 1 || hour > 24 {
		return nil, fmt.Errorf("hour out of range: %d", hour)
	}

	reading := &models.DemandReading{
		Date: date,
		Hour: hour - 1,
	}

	if market := strings.TrimSpace(parts[2]); market != "" {
		v, err := strconv.ParseFloat(market, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid market demand: %w", err)
		}
		reading.MarketDemandMW = &v
	}

	if ontario := strings.TrimSpace(parts[3]); ontario != "" {
		v, err := strconv.ParseFloat(ontario, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid ontario demand: %w", err)
		}
		reading.OntarioDemandMW = &v
	}

	return reading, nil
}
