package datastructures

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/keboola/keboola-coordination/internal/pkg/service/coordination/placement"
)

const indexDigits = 20

// keys builds keys of the store:
//   - <prefix>/meta/<name>
//   - <prefix>/queue/<partition>/<name>/<index>
//
// The name is escaped, so it never contains the "/" separator.
// The index is zero padded, so the ascending order of keys is also the ascending order of indexes.
type keys struct {
	prefix string
	placer *placement.Placer
}

func newKeys(prefix string, placer *placement.Placer) keys {
	return keys{prefix: strings.Trim(prefix, "/") + "/", placer: placer}
}

func (k keys) meta(name string) string {
	return k.prefix + "meta/" + url.PathEscape(name)
}

// element returns key of the queue element.
// A collocated queue has all elements in one partition, otherwise the partition is selected by the index.
func (k keys) element(name string, collocated bool, index int64) string {
	return k.elementsPrefix(name, k.elementPartition(name, collocated, index)) + formatIndex(index)
}

// elementsPrefixes returns prefixes of all partitions which may contain elements of the queue.
func (k keys) elementsPrefixes(name string, collocated bool) []string {
	if collocated {
		return []string{k.elementsPrefix(name, k.placer.PartitionFor(name))}
	}

	var out []string
	for _, partition := range k.placer.Partitions() {
		out = append(out, k.elementsPrefix(name, partition))
	}
	return out
}

func (k keys) elementsPrefix(name, partition string) string {
	return k.prefix + "queue/" + partition + "/" + url.PathEscape(name) + "/"
}

func (k keys) elementPartition(name string, collocated bool, index int64) string {
	if collocated {
		return k.placer.PartitionFor(name)
	}
	return k.placer.PartitionFor(name + "/" + formatIndex(index))
}

func formatIndex(index int64) string {
	return fmt.Sprintf("%0*d", indexDigits, index)
}

func parseIndex(key string) (int64, error) {
	return strconv.ParseInt(key[strings.LastIndexByte(key, '/')+1:], 10, 64)
}
