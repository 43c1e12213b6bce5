package internal

type ItemSource string

const (
	SourceText      ItemSource = "text"
	SourceHTMLTable ItemSource = "html_table"
	SourceXLSX      ItemSource = "xlsx"
	SourcePDF       ItemSource = "pdf"
)

type ExtractionItem struct {
	LineNo  int
	Source  ItemSource
	RawLine string
	Name    *string
	Amount  *float64
	Unit    *string
	Meta    map[string]any
}

type ResolutionStatus string

type ResolutionReason string

const (
	ResolveOK       ResolutionStatus = "OK"
	ResolveReview   ResolutionStatus = "REVIEW"
	ResolveNotFound ResolutionStatus = "NOT_FOUND"

	ReasonCode      ResolutionReason = "CODE"
	ReasonVariant   ResolutionReason = "VARIANT"
	ReasonCanonical ResolutionReason = "CANONICAL"
	ReasonFuzzy     ResolutionReason = "FUZZY"
	ReasonNone      ResolutionReason = "NONE"
)

// CompoundRecord is one row of the compound property table. Canonical is the
// registry's standardized name; everything else is optional enrichment data.
type CompoundRecord struct {
	RegistryID      *int
	Canonical       string
	Formula         *string
	CAS             *string
	MolecularWeight *float64
	DevCodes        []string
	UpdatedAt       *string
	RawJSON         string
}

// VariantEntry maps one alternate spelling to its canonical form.
type VariantEntry struct {
	Variant   string
	Canonical string
}

type ResolutionCandidate struct {
	Canonical string  `json:"canonical"`
	Score     float64 `json:"score"`
}

// ResolutionResult is the outcome of resolving one input name. Normalized is
// always set: the canonical name on a hit, the original input on a miss.
type ResolutionResult struct {
	Status     ResolutionStatus      `json:"status"`
	Confidence float64               `json:"confidence"`
	Reason     ResolutionReason      `json:"reason"`
	Normalized string                `json:"normalized"`
	Canonical  *string               `json:"canonical"`
	Candidates []ResolutionCandidate `json:"candidates"`
}

type RequestRow struct {
	ID         int
	Provider   string
	MessageID  string
	Subject    string
	Sender     string
	ReceivedAt string
	Hash       string
	Status     string
	RawRef     string
}

type FetchedMailMessage struct {
	Provider   string
	MessageID  string
	Subject    string
	From       string
	ReceivedAt string
	Raw        []byte
}

type ResultExportRow struct {
	InputLineNo     int
	Source          string
	RawLine         string
	ParsedName      *string
	ParsedAmount    *float64
	ParsedUnit      *string
	Status          string
	Confidence      float64
	Reason          string
	NormalizedName  string
	Canonical       *string
	Formula         *string
	CAS             *string
	MolecularWeight *float64
	Candidate2Name  *string
	Candidate2Score *float64
}

// RankedCompound pairs a canonical name with its computed score for the
// enriched-ranking export.
type RankedCompound struct {
	Canonical       string
	MolecularWeight *float64
	Score           float64
}
