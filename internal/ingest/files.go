package ingest

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"shelfguard/internal/config"
	"shelfguard/internal/model"
)

// Dataset is one fully materialized batch: every stream plus the
// reference catalogs, ready for a correlation pass.
type Dataset struct {
	POS       []model.Record
	RFID      []model.Record
	Vision    []model.Record
	Queue     []model.Record
	Snapshots []model.Record
	Products  map[string]model.Product
	Customers map[string]model.Customer
	Skipped   int
}

// Records returns all stream records in one slice, for rules that scan
// every source.
func (d *Dataset) Records() []model.Record {
	out := make([]model.Record, 0, len(d.POS)+len(d.RFID)+len(d.Vision)+len(d.Queue)+len(d.Snapshots))
	out = append(out, d.POS...)
	out = append(out, d.RFID...)
	out = append(out, d.Vision...)
	out = append(out, d.Queue...)
	out = append(out, d.Snapshots...)
	return out
}

func (d *Dataset) add(rec model.Record) {
	switch rec.Source {
	case model.SourcePOS:
		d.POS = append(d.POS, rec)
	case model.SourceRFID:
		d.RFID = append(d.RFID, rec)
	case model.SourceVision:
		d.Vision = append(d.Vision, rec)
	case model.SourceQueue:
		d.Queue = append(d.Queue, rec)
	case model.SourceInventory:
		d.Snapshots = append(d.Snapshots, rec)
	}
}

type Loader struct {
	dir    string
	files  config.FilesConfig
	logger *slog.Logger
	seq    int64
}

func NewLoader(cfg config.IngestConfig, logger *slog.Logger) *Loader {
	return &Loader{dir: cfg.DataDir, files: cfg.Files, logger: logger}
}

func (l *Loader) nextSeq() int64 {
	l.seq++
	return l.seq
}

// Load reads every configured input file. Stream files are optional: a
// missing file yields an empty stream, only the product catalog is
// required. Malformed lines are counted and skipped, never fatal.
func (l *Loader) Load() (*Dataset, error) {
	ds := &Dataset{
		Products:  make(map[string]model.Product),
		Customers: make(map[string]model.Customer),
	}

	products, err := l.loadProducts(filepath.Join(l.dir, l.files.Products))
	if err != nil {
		return nil, err
	}
	ds.Products = products

	if l.files.Customers != "" {
		customers, err := l.loadCustomers(filepath.Join(l.dir, l.files.Customers))
		if err != nil {
			if l.logger != nil {
				l.logger.Warn("customer data unavailable", "err", err)
			}
		} else {
			ds.Customers = customers
		}
	}

	streams := []struct {
		kind model.SourceKind
		name string
	}{
		{model.SourcePOS, l.files.POS},
		{model.SourceRFID, l.files.RFID},
		{model.SourceVision, l.files.Vision},
		{model.SourceQueue, l.files.Queue},
		{model.SourceInventory, l.files.Inventory},
	}
	for _, stream := range streams {
		if stream.name == "" {
			continue
		}
		if err := l.loadJSONL(ds, stream.kind, filepath.Join(l.dir, stream.name)); err != nil {
			return nil, err
		}
	}
	if l.logger != nil {
		l.logger.Info("dataset loaded",
			"pos", len(ds.POS),
			"rfid", len(ds.RFID),
			"vision", len(ds.Vision),
			"queue", len(ds.Queue),
			"snapshots", len(ds.Snapshots),
			"products", len(ds.Products),
			"customers", len(ds.Customers),
			"skipped", ds.Skipped,
		)
	}
	return ds, nil
}

func (l *Loader) loadJSONL(ds *Dataset, kind model.SourceKind, path string) error {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			if l.logger != nil {
				l.logger.Info("stream file missing, skipping", "kind", kind, "path", path)
			}
			return nil
		}
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		rec, err := DecodeRecord(kind, []byte(line), l.nextSeq())
		if err != nil {
			ds.Skipped++
			if l.logger != nil {
				l.logger.Debug("skipping malformed line", "kind", kind, "err", err)
			}
			continue
		}
		ds.add(rec)
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	return nil
}

func (l *Loader) loadProducts(path string) (map[string]model.Product, error) {
	rows, header, err := readCSV(path)
	if err != nil {
		return nil, err
	}
	products := make(map[string]model.Product, len(rows))
	for _, row := range rows {
		sku := csvField(row, header, "sku")
		if sku == "" {
			continue
		}
		weight, _ := strconv.ParseFloat(csvField(row, header, "weight"), 64)
		price, _ := strconv.ParseFloat(csvField(row, header, "price"), 64)
		products[sku] = model.Product{
			SKU:     sku,
			Name:    csvField(row, header, "product_name"),
			Barcode: csvField(row, header, "barcode"),
			WeightG: weight,
			Price:   price,
		}
	}
	return products, nil
}

func (l *Loader) loadCustomers(path string) (map[string]model.Customer, error) {
	rows, header, err := readCSV(path)
	if err != nil {
		return nil, err
	}
	customers := make(map[string]model.Customer, len(rows))
	for _, row := range rows {
		id := csvField(row, header, "customer_id")
		if id == "" {
			continue
		}
		customers[id] = model.Customer{
			ID:      id,
			Name:    csvField(row, header, "name"),
			Age:     csvField(row, header, "age"),
			Address: csvField(row, header, "address"),
			Phone:   csvField(row, header, "tp"),
		}
	}
	return customers, nil
}

func readCSV(path string) ([][]string, map[string]int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.TrimLeadingSpace = true
	headerRow, err := r.Read()
	if err != nil {
		return nil, nil, fmt.Errorf("read %s header: %w", path, err)
	}
	header := make(map[string]int, len(headerRow))
	for i, name := range headerRow {
		header[strings.ToLower(strings.TrimSpace(name))] = i
	}
	var rows [][]string
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			// Ragged rows are reference-data noise, not a fatal condition.
			continue
		}
		rows = append(rows, row)
	}
	return rows, header, nil
}

func csvField(row []string, header map[string]int, name string) string {
	i, ok := header[name]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}
