package structure

// Formation records which confirmed break produced a segment.
type Formation string

const (
	FormationBOS   Formation = "bos"
	FormationCHOCH Formation = "choch"
)

// Segment is a candle range and price range within which already-formed order
// blocks remain valid. Segments are emitted in non-decreasing StartPDI order
// and never mutated after creation.
type Segment struct {
	StartPDI            int
	EndPDI              int
	OBLegStartPDI       int
	OBLegEndPDI         int
	TopPrice            float64
	BottomPrice         float64
	OBFormationStartPDI int
	BrokenLPLPDI        int
	Type                TrendType
	Formation           Formation
}
