package ordinals

// Tag identifies a field inside an inscription envelope.
type Tag uint8

var (
	TagBody        = Tag(0)
	TagContentType = Tag(1)
)

// Bytes returns the data pushed for the tag. The body tag is an empty push.
func (t Tag) Bytes() []byte {
	if t == TagBody {
		return []byte{}
	}
	return []byte{byte(t)}
}
