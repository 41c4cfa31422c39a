// Package report exports the outcome of each nightly aggregation run as a Parquet file,
// either on local disk or in object storage.
package report

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/alenjb/deli/internal/cloudwriter"
	"github.com/alenjb/deli/internal/models"
	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/source"
	"github.com/xitongsys/parquet-go/writer"
)

const fileName = "delay_summary.parquet"

// Row is one store's line in a nightly report.
type Row struct {
	Day          string  `parquet:"name=day, type=BYTE_ARRAY, convertedtype=UTF8"`
	StoreID      string  `parquet:"name=store_id, type=BYTE_ARRAY, convertedtype=UTF8"`
	StoreName    string  `parquet:"name=store_name, type=BYTE_ARRAY, convertedtype=UTF8"`
	Orders       int32   `parquet:"name=orders, type=INT32"`
	Delayed      int32   `parquet:"name=delayed, type=INT32"`
	DelayMinutes int64   `parquet:"name=delay_minutes, type=INT64"`
	DelayRate    float64 `parquet:"name=delay_rate, type=DOUBLE"`
	TotalOrders  int32   `parquet:"name=total_orders, type=INT32"`
	TotalDelayed int32   `parquet:"name=total_delayed, type=INT32"`
	Outcome      string  `parquet:"name=outcome, type=BYTE_ARRAY, convertedtype=UTF8"`
	Error        string  `parquet:"name=error, type=BYTE_ARRAY, convertedtype=UTF8"`
}

type Writer struct {
	cfg     models.ReportConfig
	factory cloudwriter.CloudWriterFactory
	log     *slog.Logger
}

func NewWriter(ctx context.Context, cfg models.ReportConfig, log *slog.Logger) (*Writer, error) {
	var factory cloudwriter.CloudWriterFactory
	if cfg.OutputDestination == "cloud" {
		switch cfg.CloudStorage.Provider {
		case "s3", "":
			f, err := cloudwriter.NewS3WriterFactory(ctx, cfg.CloudStorage.Region)
			if err != nil {
				return nil, err
			}
			factory = f
		default:
			return nil, fmt.Errorf("unsupported cloud storage provider: %s", cfg.CloudStorage.Provider)
		}
	}
	return NewWriterWithFactory(cfg, factory, log), nil
}

func NewWriterWithFactory(cfg models.ReportConfig, factory cloudwriter.CloudWriterFactory, log *slog.Logger) *Writer {
	return &Writer{cfg: cfg, factory: factory, log: log}
}

// Write stores rows for day and returns where they went.
func (w *Writer) Write(ctx context.Context, day time.Time, rows []Row) (string, error) {
	dir := "day=" + day.Format(time.DateOnly)

	var (
		fw       source.ParquetFile
		location string
		err      error
	)
	if w.factory != nil {
		location = path.Join(w.cfg.OutputFolder, dir, fileName)
		cw, err := w.factory.NewWriter(ctx, w.cfg.CloudStorage.BucketName, location)
		if err != nil {
			return "", fmt.Errorf("failed to create cloud writer: %w", err)
		}
		fw = NewCloudParquetFile(cw)
	} else {
		fullPath := filepath.Join(w.cfg.OutputPath, w.cfg.OutputFolder, dir)
		if err := os.MkdirAll(fullPath, 0o755); err != nil {
			return "", fmt.Errorf("failed to create report directory %s: %w", fullPath, err)
		}
		location = filepath.Join(fullPath, fileName)
		fw, err = local.NewLocalFileWriter(location)
		if err != nil {
			return "", fmt.Errorf("failed to create report file %s: %w", location, err)
		}
	}

	if err := writeRows(fw, rows); err != nil {
		_ = fw.Close()
		return "", err
	}
	if err := fw.Close(); err != nil {
		return "", fmt.Errorf("failed to close report %s: %w", location, err)
	}

	w.log.Info("nightly report written", slog.String("location", location), slog.Int("rows", len(rows)))
	return location, nil
}

func writeRows(fw source.ParquetFile, rows []Row) error {
	pw, err := writer.NewParquetWriter(fw, new(Row), 4)
	if err != nil {
		return fmt.Errorf("failed to create ParquetWriter: %w", err)
	}
	pw.CompressionType = parquet.CompressionCodec_SNAPPY

	for _, row := range rows {
		if err := pw.Write(row); err != nil {
			return fmt.Errorf("failed to write report row for store %s: %w", row.StoreID, err)
		}
	}
	if err := pw.WriteStop(); err != nil {
		return fmt.Errorf("failed to finalize parquet file: %w", err)
	}
	return nil
}

// CloudParquetFile adapts a write-only CloudWriter to source.ParquetFile.
type CloudParquetFile struct {
	cloudWriter cloudwriter.CloudWriter
	offset      int64
}

func NewCloudParquetFile(cloudWriter cloudwriter.CloudWriter) *CloudParquetFile {
	return &CloudParquetFile{cloudWriter: cloudWriter}
}

// Open and Create return the receiver; the object exists once it is closed.
func (c *CloudParquetFile) Open(name string) (source.ParquetFile, error)   { return c, nil }
func (c *CloudParquetFile) Create(name string) (source.ParquetFile, error) { return c, nil }

func (c *CloudParquetFile) Seek(offset int64, whence int) (int64, error) {
	switch whence {
	case io.SeekStart:
		c.offset = offset
	case io.SeekCurrent:
		c.offset += offset
	case io.SeekEnd:
		return 0, fmt.Errorf("seek from end not supported for cloud storage")
	}
	return c.offset, nil
}

func (c *CloudParquetFile) Read(p []byte) (n int, err error) {
	return 0, fmt.Errorf("read not supported for cloud storage")
}

func (c *CloudParquetFile) Write(p []byte) (n int, err error) {
	n, err = c.cloudWriter.Write(p)
	c.offset += int64(n)
	return n, err
}

func (c *CloudParquetFile) Close() error {
	return c.cloudWriter.Close()
}
