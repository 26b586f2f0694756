package model

import (
	"time"

	"github.com/shopspring/decimal"
)

func init() {
	// amounts are JSON numbers on the wire, as in the upstream payloads
	decimal.MarshalJSONWithoutQuotes = true
}

type NodeKind string

const (
	KindFolder  NodeKind = "folder"
	KindProduct NodeKind = "product"
)

// Node is one entry of a folder's children. Exactly one of Folder or Product
// is set, matching Kind; the kind is decided when the upstream payload is
// parsed and is never re-derived.
type Node struct {
	Kind    NodeKind        `json:"kind"`
	Folder  *FolderNode     `json:"folder,omitempty"`
	Product *ProductSummary `json:"product,omitempty"`
}

func FolderEntry(f FolderNode) Node {
	return Node{Kind: KindFolder, Folder: &f}
}

func ProductEntry(p ProductSummary) Node {
	return Node{Kind: KindProduct, Product: &p}
}

// FolderNode groups sub-folders and products. A folder with no children and a
// positive DeclaredSize has not been hydrated yet.
type FolderNode struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	DeclaredSize int    `json:"size"`
	Children     []Node `json:"children"`
}

func (f FolderNode) NeedsHydration() bool {
	return len(f.Children) == 0 && f.DeclaredSize > 0
}

type ProductSummary struct {
	ID             string                     `json:"id" validate:"required"`
	Title          string                     `json:"title"`
	Slug           string                     `json:"slug"`
	Summary        string                     `json:"summary,omitempty"`
	BasePrice      decimal.NullDecimal        `json:"basePrice"`
	BaseCurrency   string                     `json:"baseCurrency,omitempty"`
	DurationWeeks  int                        `json:"durationWeeks,omitempty" validate:"gte=0"`
	DurationDays   int                        `json:"durationDays,omitempty" validate:"gte=0"`
	DurationHours  int                        `json:"durationHours,omitempty" validate:"gte=0"`
	KeyPhoto       *Photo                     `json:"keyPhoto,omitempty"`
	Photos         []Photo                    `json:"photos,omitempty"`
	OptimizedImage string                     `json:"optimizedImage,omitempty"`
	Location       string                     `json:"location,omitempty"`
	AllPrices      map[string]decimal.Decimal `json:"allPrices,omitempty"`
}

type Photo struct {
	OriginalURL string         `json:"originalUrl,omitempty"`
	CleanURL    string         `json:"cleanUrl,omitempty"`
	Derived     []DerivedPhoto `json:"derived,omitempty"`
}

type DerivedPhoto struct {
	Name     string `json:"name"`
	CleanURL string `json:"cleanUrl"`
}

// RateTable maps currency codes to rates against Base. It is fetched once
// per refresh run and must not be modified afterwards.
type RateTable struct {
	Base  string                     `json:"base"`
	Rates map[string]decimal.Decimal `json:"rates"`
}

type AvailabilityEntry struct {
	Date           string `json:"date,omitempty"`
	StartTime      string `json:"startTime,omitempty"`
	SpotsAvailable int    `json:"spotsAvailable"`
}

type ProductAvailability struct {
	Product ProductSummary
	Dates   []AvailabilityEntry
}

type CalendarEntry struct {
	ProductSummary
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`
	SpotsLeft int    `json:"spotsLeft"`
}

type SnapshotMode string

const (
	ModeStandard SnapshotMode = "standard"
	ModeUpcoming SnapshotMode = "upcoming"
	ModeReviews  SnapshotMode = "reviews"
)

// Snapshot is the materialized output of one refresh run for one mode.
type Snapshot struct {
	Mode        SnapshotMode    `json:"mode"`
	RunID       string          `json:"runId"`
	GeneratedAt time.Time       `json:"generatedAt"`
	Tree        []Node          `json:"tree,omitempty"`
	Entries     []CalendarEntry `json:"entries,omitempty"`
	Reviews     []Review        `json:"reviews,omitempty"`
	Partial     bool            `json:"partial"`
	FailedPaths []string        `json:"failedPaths,omitempty"`
}
