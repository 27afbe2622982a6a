package skumap

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"

	"market-etl/internal/model"
)

// Header is the column order of mapping files.
var Header = []string{"master_sku", "platform", "platform_sku", "product_name", "variation", "notes"}

var requiredColumns = []string{"master_sku", "platform", "platform_sku"}

const bom = "\ufeff"

// LoadCSV reads mapping rows from r and returns how many were added. Rows
// without master or platform SKU are skipped; rows naming an unsupported
// platform are logged and skipped. A missing required column aborts the load.
func (m *Mapper) LoadCSV(r io.Reader) (int, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	head, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return 0, &ConfigurationError{Op: "load csv", Err: errors.New("file is empty or has no header")}
	}
	if err != nil {
		return 0, fmt.Errorf("skumap: read header: %w", err)
	}
	cols := make(map[string]int, len(head))
	for i, name := range head {
		if i == 0 {
			name = strings.TrimPrefix(name, bom)
		}
		cols[strings.TrimSpace(name)] = i
	}
	var missing []string
	for _, c := range requiredColumns {
		if _, ok := cols[c]; !ok {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return 0, &ConfigurationError{Op: "load csv", Err: fmt.Errorf("missing required columns: %s", strings.Join(missing, ", "))}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return count, fmt.Errorf("skumap: read row: %w", err)
		}
		field := func(name string) string {
			i, ok := cols[name]
			if !ok || i >= len(row) {
				return ""
			}
			return strings.TrimSpace(row[i])
		}
		master, sku := field("master_sku"), field("platform_sku")
		if master == "" || sku == "" {
			continue
		}
		platform := strings.ToLower(field("platform"))
		if !supported(platform) {
			m.log.WithFields(logrus.Fields{"platform": platform, "sku": sku}).Warn("unknown platform in mapping, row skipped")
			continue
		}
		m.add(master, platform, sku, Details{
			ProductName: field("product_name"),
			Variation:   field("variation"),
			Notes:       field("notes"),
		})
		count++
	}
	return count, nil
}

// LoadFile is LoadCSV over the file at path.
func (m *Mapper) LoadFile(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("skumap: open mapping file: %w", err)
	}
	defer f.Close()
	n, err := m.LoadCSV(f)
	if err != nil {
		return n, err
	}
	m.log.WithFields(logrus.Fields{"file": path, "count": n}).Info("loaded SKU mappings")
	return n, nil
}

// SaveCSV writes every mapping in insertion order and returns the row count.
func (m *Mapper) SaveCSV(w io.Writer) (int, error) {
	rows := m.Mappings()
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return 0, err
	}
	for _, r := range rows {
		if err := cw.Write([]string{r.MasterSKU, r.Platform, r.PlatformSKU, r.ProductName, r.Variation, r.Notes}); err != nil {
			return 0, err
		}
	}
	cw.Flush()
	return len(rows), cw.Error()
}

// SaveFile writes the table to path, creating parent directories. The file
// is replaced atomically.
func (m *Mapper) SaveFile(path string) (int, error) {
	n, err := writeFile(path, m.SaveCSV)
	if err != nil {
		return 0, err
	}
	m.log.WithFields(logrus.Fields{"file": path, "count": n}).Info("saved SKU mappings")
	return n, nil
}

// WriteUnmappedCSV writes unmapped SKUs as mapping rows with an empty master
// SKU, ready to be filled in and loaded back. The suggestion goes in notes so
// that nothing is mapped until someone copies it over.
func WriteUnmappedCSV(w io.Writer, unmapped []Unmapped) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return err
	}
	for _, u := range unmapped {
		notes := ""
		if u.Suggested != "" {
			notes = "suggested: " + u.Suggested
		}
		if err := cw.Write([]string{"", u.Platform, u.SKU, u.Name, u.Variation, notes}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// GenerateUnmappedCSV writes the unmapped SKUs of products to path and
// returns how many were written.
func (m *Mapper) GenerateUnmappedCSV(products []model.UnifiedProduct, path string) (int, error) {
	unmapped := m.UnmappedSKUs(products)
	_, err := writeFile(path, func(w io.Writer) (int, error) {
		return len(unmapped), WriteUnmappedCSV(w, unmapped)
	})
	if err != nil {
		return 0, err
	}
	m.log.WithFields(logrus.Fields{"file": path, "count": len(unmapped)}).Info("generated unmapped SKUs file")
	return len(unmapped), nil
}

func writeFile(path string, write func(io.Writer) (int, error)) (int, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, fmt.Errorf("skumap: create dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".skumap-*.csv")
	if err != nil {
		return 0, fmt.Errorf("skumap: create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	n, err := write(tmp)
	if err != nil {
		tmp.Close()
		return 0, fmt.Errorf("skumap: write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return 0, fmt.Errorf("skumap: close %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return 0, fmt.Errorf("skumap: replace %s: %w", path, err)
	}
	return n, nil
}
