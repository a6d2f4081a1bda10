package bind_group_provider

// BufferWrite describes a single GPU buffer write targeting a binding of a
// BindGroupProvider at a byte offset. The shadow pass uses the offset to fill
// one world matrix slot at a time.
type BufferWrite struct {
	Provider BindGroupProvider
	Binding  int
	Offset   uint64
	Data     []byte
}
