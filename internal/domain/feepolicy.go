package domain

// Platform defaults applied when the registry is initialized without
// explicit configuration.
const (
	DefaultPlatformFeeBps    uint32 = 10   // 0.1%
	DefaultPerformanceFeeBps uint32 = 2000 // 20%, reserved for future accounting
)

// FeePolicy is the write-once platform fee configuration. It is created by
// the first caller of the registry's Init and never mutated afterwards; there
// is no update path.
type FeePolicy struct {
	Admin             ID
	Collector         EntityID
	PlatformFeeBps    uint32
	PerformanceFeeBps uint32
}

// Clone returns a deep copy.
func (p *FeePolicy) Clone() *FeePolicy {
	if p == nil {
		return nil
	}
	cp := *p
	return &cp
}
