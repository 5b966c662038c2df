package discovery

import "sort"

// ServiceImplementationSet maps each resolved service type to the binary
// names of its implementations. Services keep the order they were
// requested in; implementation names are sorted.
type ServiceImplementationSet struct {
	services []string
	impls    map[string][]string
}

// Services returns the service names in request order.
func (s *ServiceImplementationSet) Services() []string {
	out := make([]string, len(s.services))
	copy(out, s.services)
	return out
}

// Implementations returns the implementations of service. The boolean is
// false when service is not a key of the set, which is distinct from a
// resolved service with no implementations.
func (s *ServiceImplementationSet) Implementations(service string) ([]string, bool) {
	impls, ok := s.impls[service]
	if !ok {
		return nil, false
	}
	out := make([]string, len(impls))
	copy(out, impls)
	return out, true
}

// Len returns the number of services in the set.
func (s *ServiceImplementationSet) Len() int { return len(s.services) }

// Map returns a copy of the set as a plain map.
func (s *ServiceImplementationSet) Map() map[string][]string {
	out := make(map[string][]string, len(s.impls))
	for k := range s.impls {
		out[k], _ = s.Implementations(k)
	}
	return out
}

// NewServiceImplementationSet builds a set from explicit entries. Services
// keep the given order, duplicates collapse to the first occurrence and
// every implementation list is sorted.
func NewServiceImplementationSet(services []string, impls map[string][]string) *ServiceImplementationSet {
	b := newBuilder()
	for _, s := range services {
		b.addService(s)
		for _, impl := range impls[s] {
			b.add(s, impl)
		}
	}
	return b.build(nil)
}

type builder struct {
	services []string
	found    map[string][]string
}

func newBuilder() *builder {
	return &builder{found: make(map[string][]string)}
}

func (b *builder) addService(name string) {
	if _, ok := b.found[name]; ok {
		return
	}
	b.services = append(b.services, name)
	b.found[name] = []string{}
}

func (b *builder) add(service, impl string) {
	b.found[service] = append(b.found[service], impl)
}

// build filters and sorts each list. Services with nothing left still get
// an empty, non-nil list.
func (b *builder) build(f *Filter) *ServiceImplementationSet {
	set := &ServiceImplementationSet{
		services: b.services,
		impls:    make(map[string][]string, len(b.services)),
	}
	for _, s := range b.services {
		impls := f.Apply(b.found[s])
		sort.Strings(impls)
		set.impls[s] = dedupeSorted(impls)
	}
	return set
}

func dedupeSorted(names []string) []string {
	if len(names) < 2 {
		return names
	}
	out := names[:1]
	for _, n := range names[1:] {
		if n != out[len(out)-1] {
			out = append(out, n)
		}
	}
	return out
}
