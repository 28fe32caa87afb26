package vectorstore

// Document is a unit of knowledge to be embedded and stored.
type Document struct {
	// ID uniquely identifies the document. Auto-generated when empty.
	ID string

	// Content is the text that gets embedded.
	Content string

	// Metadata carries arbitrary key/value pairs stored alongside the vector.
	Metadata map[string]interface{}
}

// SearchResult is a single hit from a similarity search.
type SearchResult struct {
	// ID of the matched document.
	ID string

	// Content of the matched document.
	Content string

	// Score is the cosine similarity in [0, 1]; higher is closer.
	Score float32

	// Metadata stored with the document.
	Metadata map[string]interface{}
}
