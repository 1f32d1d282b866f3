package bind_group_provider

// BufferWrite describes a single GPU buffer write targeting a binding on a
// BindGroupProvider. Writes against bindings whose buffer does not exist yet
// are dropped silently, so per-frame uploads stay safe while resources load.
type BufferWrite struct {
	// Provider owns the destination buffer.
	Provider BindGroupProvider
	// Binding selects the buffer within the provider.
	Binding int
	// Offset is the destination byte offset. Partial writes, e.g. the packed
	// prefix of the ball buffer, leave the rest of the buffer untouched.
	Offset uint64
	// Data is the raw bytes to write.
	Data []byte
}
