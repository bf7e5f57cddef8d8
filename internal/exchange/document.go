// Package exchange converts the record store to and from its portable
// formats: a lossless structured JSON document used for persistence,
// backup and full export/import, and a lossy delimited-text export for
// spreadsheets.
package exchange

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/choubo/choubo/internal/common"
	"github.com/choubo/choubo/internal/model"
	"github.com/choubo/choubo/internal/schema"
)

// Version is the exchange format version stamped into every document.
const Version = "1.0"

// Image is the persisted shape of the whole store: one array per category.
// Field order matches the category display order.
type Image struct {
	Sales                []model.Record `json:"sales"`
	Purchases            []model.Record `json:"purchases"`
	FixedCosts           []model.Record `json:"fixedCosts"`
	VariableCosts        []model.Record `json:"variableCosts"`
	LaborCosts           []model.Record `json:"laborCosts"`
	ConsumptionTax       []model.Record `json:"consumptionTax"`
	MonthlyPayments      []model.Record `json:"monthlyPayments"`
	ManufacturerDeposits []model.Record `json:"manufacturerDeposits"`
}

// ExportInfo is the metadata sibling of the category data in portable files.
type ExportInfo struct {
	ExportDate  time.Time `json:"exportDate"`
	Version     string    `json:"version"`
	RecordCount int       `json:"recordCount"`
}

// BackupInfo is carried additionally by snapshot files.
type BackupInfo struct {
	CreatedAt   time.Time          `json:"createdAt"`
	Type        model.SnapshotKind `json:"type"`
	Description string             `json:"description,omitempty"`
	Version     string             `json:"version"`
	Timestamp   int64              `json:"timestamp"`
	RecordCount int                `json:"recordCount"`
}

// Document is the full portable file: exportInfo (and backupInfo for
// snapshots) as top-level siblings of the eight category arrays.
type Document struct {
	ExportInfo ExportInfo  `json:"exportInfo"`
	BackupInfo *BackupInfo `json:"backupInfo,omitempty"`
	Image
}

// ImageOf builds an Image from a store snapshot.
func ImageOf(data map[model.Category][]model.Record) Image {
	return Image{
		Sales:                data[model.CategorySales],
		Purchases:            data[model.CategoryPurchases],
		FixedCosts:           data[model.CategoryFixedCosts],
		VariableCosts:        data[model.CategoryVariableCosts],
		LaborCosts:           data[model.CategoryLaborCosts],
		ConsumptionTax:       data[model.CategoryConsumptionTax],
		MonthlyPayments:      data[model.CategoryMonthlyPayments],
		ManufacturerDeposits: data[model.CategoryManufacturerDeposits],
	}
}

// ToMap flattens the image back into the store's category mapping.
func (img Image) ToMap() map[model.Category][]model.Record {
	return map[model.Category][]model.Record{
		model.CategorySales:                img.Sales,
		model.CategoryPurchases:            img.Purchases,
		model.CategoryFixedCosts:           img.FixedCosts,
		model.CategoryVariableCosts:        img.VariableCosts,
		model.CategoryLaborCosts:           img.LaborCosts,
		model.CategoryConsumptionTax:       img.ConsumptionTax,
		model.CategoryMonthlyPayments:      img.MonthlyPayments,
		model.CategoryManufacturerDeposits: img.ManufacturerDeposits,
	}
}

// Count returns the total record count across all categories.
func (img Image) Count() int {
	total := 0
	for _, recs := range img.ToMap() {
		total += len(recs)
	}
	return total
}

// EncodeImage serializes the live-image format: category arrays only,
// no metadata.
func EncodeImage(data map[model.Category][]model.Record) ([]byte, error) {
	raw, err := json.Marshal(ImageOf(data))
	if err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}
	return raw, nil
}

// DecodeImage parses the live-image format. Structural validity of the
// records themselves is the caller's concern (see Verify and Repair).
func DecodeImage(raw []byte) (map[model.Category][]model.Record, error) {
	var img Image
	if err := json.Unmarshal(raw, &img); err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrBadFormat, err)
	}
	return img.ToMap(), nil
}

// Encode serializes a portable export document. When info is non-nil the
// document is a snapshot file carrying backupInfo.
func Encode(data map[model.Category][]model.Record, now time.Time, info *BackupInfo) ([]byte, error) {
	doc := Document{
		ExportInfo: ExportInfo{
			ExportDate:  now,
			Version:     Version,
			RecordCount: 0,
		},
		BackupInfo: info,
		Image:      ImageOf(data),
	}
	doc.ExportInfo.RecordCount = doc.Count()

	raw, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode document: %w", err)
	}
	return raw, nil
}

// Decode parses a portable document. Malformed input is rejected with
// ErrBadFormat before any caller-visible state can change.
func Decode(raw []byte) (Document, error) {
	var doc Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return Document{}, fmt.Errorf("%w: %v", common.ErrBadFormat, err)
	}
	return doc, nil
}

// Verify checks a category mapping for structural integrity: known
// categories, globally unique well-formed ids, schema-valid records.
func Verify(data map[model.Category][]model.Record) error {
	seen := make(map[string]struct{})
	for c, recs := range data {
		if !c.Valid() {
			return fmt.Errorf("%w: unknown category %q", common.ErrIntegrity, c)
		}
		for _, rec := range recs {
			if _, dup := seen[rec.ID]; dup {
				return fmt.Errorf("%w: duplicate id %s", common.ErrIntegrity, rec.ID)
			}
			seen[rec.ID] = struct{}{}
			if result := schema.ValidateRecord(c, rec); !result.Valid {
				return fmt.Errorf("%w: record %s in %s: %s", common.ErrIntegrity, rec.ID, c, result.Errors[0])
			}
		}
	}
	return nil
}

// Repair drops structurally invalid or duplicate records, keeping every
// well-formed one. Returns the cleaned mapping and the number dropped.
func Repair(data map[model.Category][]model.Record) (map[model.Category][]model.Record, int) {
	seen := make(map[string]struct{})
	clean := make(map[model.Category][]model.Record, len(model.AllCategories()))
	dropped := 0

	for _, c := range model.AllCategories() {
		var kept []model.Record
		for _, rec := range data[c] {
			if _, dup := seen[rec.ID]; dup {
				dropped++
				continue
			}
			if result := schema.ValidateRecord(c, rec); !result.Valid {
				dropped++
				continue
			}
			seen[rec.ID] = struct{}{}
			kept = append(kept, rec)
		}
		clean[c] = kept
	}

	// Records under unknown category keys are dropped wholesale.
	for c, recs := range data {
		if !c.Valid() {
			dropped += len(recs)
		}
	}
	return clean, dropped
}
