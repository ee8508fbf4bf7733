// Package placement maps affinity keys of queue elements to storage partitions.
//
// The partition is the first segment of the element key, so all elements with the same affinity key
// share one key prefix and can be listed or deleted by a single prefix scan.
//
// The hash ring/consistent hashing pattern is used to make the assignment,
// it is provided by the "consistent" package. The ring is static, it must be
// configured with the same number of partitions on all nodes.
package placement

import (
	"fmt"
	"sort"

	"github.com/lafikl/consistent"

	"github.com/keboola/keboola-coordination/internal/pkg/utils/errors"
)

const DefaultPartitions = 16

type Placer struct {
	ring       *consistent.Consistent
	partitions []string
}

func New(partitionsCount int) (*Placer, error) {
	if partitionsCount < 1 {
		return nil, errors.Errorf(`partitions count must be greater than 0, found %d`, partitionsCount)
	}

	p := &Placer{ring: consistent.New()}
	for i := range partitionsCount {
		name := PartitionName(i)
		p.ring.Add(name)
		p.partitions = append(p.partitions, name)
	}
	sort.Strings(p.partitions)
	return p, nil
}

// PartitionName returns name of the partition with the index, for example "p03".
func PartitionName(i int) string {
	return fmt.Sprintf("p%02d", i)
}

// PartitionFor returns name of the partition which owns the affinity key.
func (p *Placer) PartitionFor(affinityKey string) string {
	partition, err := p.ring.Get(affinityKey)
	if err != nil {
		// The ring is never empty, see New
		panic(err)
	}
	return partition
}

// Partitions returns names of all partitions, sorted.
func (p *Placer) Partitions() []string {
	out := make([]string, len(p.partitions))
	copy(out, p.partitions)
	return out
}
