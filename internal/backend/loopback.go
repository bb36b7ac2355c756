package backend

// loopback.go provides an in-process Transport for tests: it services a
// ControlRegion against a Local backend
// as if it were the hypervisor/device on the other side of send_control.
// This plays the role the donor's disk_eject example plays for Badger: a
// stand-in for an external collaborator explicitly named as out of scope
// (spec.md §1: "any hypervisor transport used by the remote backend").
//
// © 2025 arena-cache authors. MIT License.

// LoopbackTransport routes Remote backend calls to an in-process Local
// backend instead of a real hypervisor channel.
type LoopbackTransport struct {
	local *Local
}

// NewLoopbackTransport wraps local as the Transport's target.
func NewLoopbackTransport(local *Local) *LoopbackTransport {
	return &LoopbackTransport{local: local}
}

func (t *LoopbackTransport) Send(region *ControlRegion) error {
	switch region.Op {
	case OpPut:
		return t.local.Put(region.Key, region.Value)
	case OpGet:
		n, err := t.local.Get(region.Key, region.Value)
		if err != nil {
			region.ValueLen = 0
			return nil // NotFound is reported via ValueLen == 0, not an error
		}
		region.ValueLen = n
		return nil
	case OpInvalidate:
		if region.Key == nil {
			t.local.InvalidateAll()
		} else {
			t.local.Invalidate(region.Key)
		}
		return nil
	default:
		return nil
	}
}

var _ Transport = (*LoopbackTransport)(nil)
