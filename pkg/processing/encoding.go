package processing

// ModelEncoding controls how images are sent to remote vision models
type ModelEncoding struct {
	Format  string // jpg or png
	MaxDim  int    // long side in px, 0 keeps the original
	Quality int    // jpeg quality 1-100
}

// DefaultModelEncoding keeps enough resolution for small CJK glyphs
func DefaultModelEncoding() ModelEncoding {
	return ModelEncoding{
		Format:  "png",
		MaxDim:  2048,
		Quality: 90,
	}
}
