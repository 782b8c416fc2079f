package extractor

// Decision is the outcome of the extraction policy for one payload.
type Decision int

const (
	KeepInline Decision = iota
	Externalize
)

func (d Decision) String() string {
	if d == Externalize {
		return "externalize"
	}
	return "keep-inline"
}

// Decide externalizes a payload whose decoded size is at least threshold
// bytes. A zero threshold externalizes everything, empty payloads included.
func Decide(size, threshold int64) Decision {
	if size >= threshold {
		return Externalize
	}
	return KeepInline
}

// KBToBytes converts a boundary threshold in kilobytes to bytes.
func KBToBytes(kb int64) int64 { return kb * 1024 }
