package commonModels

// DocumentChunk is a bounded, overlapping slice of a document's tokens.
// It is the unit of embedding and retrieval; once upserted it is owned by
// the vector index and never mutated.
type DocumentChunk struct {
	Id          string `json:"chunk_id"`
	Text        string `json:"text"`
	FileName    string `json:"file_name"`
	FilePath    string `json:"file_path"`
	Tag         string `json:"tag"`
	ChunkIndex  int    `json:"chunk_index"`
	TotalChunks int    `json:"total_chunks"`
}

// VectorRecord pairs a chunk with its embedding for a write to the index.
type VectorRecord struct {
	Id        string
	Embedding []float32
	Chunk     DocumentChunk
}

// SearchHit is one retrieval result, ordered by descending similarity.
type SearchHit struct {
	Text       string  `json:"text"`
	FileName   string  `json:"file_name"`
	FilePath   string  `json:"file_path"`
	ChunkIndex int     `json:"chunk_index"`
	Tag        string  `json:"tag"`
	Score      float32 `json:"score"`
}

type MessageType string

const (
	MessageQuery    MessageType = "query"
	MessageFeedback MessageType = "feedback"
	MessageOther    MessageType = "other"
)

// ClassifiedMessage is one user turn after intent classification.
// For feedback, Text holds the directive rewritten for model steering;
// for query and other it is the original message unchanged.
type ClassifiedMessage struct {
	Kind MessageType `json:"type"`
	Text string      `json:"response"`
}
