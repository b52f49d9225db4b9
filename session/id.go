package session

// Session identities are IDLength characters with code points in
// [minIDChar, maxIDChar].
const (
	IDLength  = 16
	minIDChar = 33
	maxIDChar = 126
)

// GenerateID returns a fresh session identity. A nil src uses crypto/rand.
func GenerateID(src Source) string {
	if src == nil {
		src = NewSecureSource()
	}
	buf := make([]byte, IDLength)
	for i := range buf {
		buf[i] = byte(minIDChar + src.Intn(maxIDChar-minIDChar+1))
	}
	return string(buf)
}

// ValidID reports whether id has the shape GenerateID produces.
func ValidID(id string) bool {
	if len(id) != IDLength {
		return false
	}
	for i := 0; i < len(id); i++ {
		if id[i] < minIDChar || id[i] > maxIDChar {
			return false
		}
	}
	return true
}
