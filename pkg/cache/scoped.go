package cache

// ScopedKeyer prefixes every key of an inner Keyer. The API server uses it
// to keep results of different deployments apart in a shared Redis.
//
//	keyer := NewScopedKeyer(NewDefaultKeyer(), "windprofile:v1:")
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer returns inner with prefix prepended to every key. A nil
// inner uses the DefaultKeyer.
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{inner: inner, prefix: prefix}
}

func (k *ScopedKeyer) GridKey(modelHash string, opts GridKeyOpts) string {
	return k.prefix + k.inner.GridKey(modelHash, opts)
}

func (k *ScopedKeyer) ProfileKey(modelHash string, opts ProfileKeyOpts) string {
	return k.prefix + k.inner.ProfileKey(modelHash, opts)
}

func (k *ScopedKeyer) TransmissionKey(modelHash string, us []float64) string {
	return k.prefix + k.inner.TransmissionKey(modelHash, us)
}

func (k *ScopedKeyer) LuminosityKey(modelHash string) string {
	return k.prefix + k.inner.LuminosityKey(modelHash)
}
