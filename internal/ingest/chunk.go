package ingest

// SplitText cuts text into chunks of at most size runes, with consecutive
// chunks overlapping by overlap runes so sentences spanning a boundary stay
// retrievable. Rune-based slicing keeps multi-byte text intact.
//
// overlap must be smaller than size; config.Validate enforces that before
// an Ingestor is ever built.
func SplitText(text string, size, overlap int) []string {
	runes := []rune(text)
	if len(runes) == 0 {
		return nil
	}
	if len(runes) <= size {
		return []string{text}
	}

	step := size - overlap
	var chunks []string
	for start := 0; start < len(runes); start += step {
		end := start + size
		if end >= len(runes) {
			chunks = append(chunks, string(runes[start:]))
			break
		}
		chunks = append(chunks, string(runes[start:end]))
	}
	return chunks
}
