package datastructures

import (
	"time"

	"github.com/keboola/keboola-coordination/internal/pkg/service/coordination/placement"
)

type Config struct {
	// Prefix of all keys in the store, for example "ds".
	Prefix string `configKey:"prefix" configUsage:"Prefix of all keys in the store." validate:"required"`
	// Partitions is count of partitions of queue elements, it must be same on all nodes.
	Partitions int `configKey:"partitions" configUsage:"Count of partitions of queue elements, it must be same on all nodes." validate:"required,min=1,max=1000"`
	// SequenceReserveSize is count of sequence values reserved by one round trip to the store.
	SequenceReserveSize int `configKey:"sequenceReserveSize" configUsage:"Count of sequence values reserved at once." validate:"required,min=1"`
	// RemoveBatchSize is used when a queue is cleared or when a stuck removal is completed.
	RemoveBatchSize int `configKey:"removeBatchSize" configUsage:"Max number of queue elements deleted in one transaction." validate:"required,min=1"`
	// StrictInitArgs enables warning if a data structure already exists with different init arguments.
	StrictInitArgs        bool          `configKey:"strictInitArgs" configUsage:"Log warning if a data structure already exists with different init arguments."`
	LatchPollInterval     time.Duration `configKey:"latchPollInterval" configUsage:"Initial interval of polling in the latch await, if the store cannot watch keys." validate:"required"`
	LatchMaxPollInterval  time.Duration `configKey:"latchMaxPollInterval" configUsage:"Max interval of polling in the latch await." validate:"required,gtefield=LatchPollInterval"`
	QueueRetryInterval    time.Duration `configKey:"queueRetryInterval" configUsage:"Initial retry interval of the blocking queue put and take." validate:"required"`
	QueueMaxRetryInterval time.Duration `configKey:"queueMaxRetryInterval" configUsage:"Max retry interval of the blocking queue put and take." validate:"required,gtefield=QueueRetryInterval"`
}

func NewConfig() Config {
	return Config{
		Prefix:                "ds",
		Partitions:            placement.DefaultPartitions,
		SequenceReserveSize:   1000,
		RemoveBatchSize:       100,
		StrictInitArgs:        false,
		LatchPollInterval:     10 * time.Millisecond,
		LatchMaxPollInterval:  time.Second,
		QueueRetryInterval:    10 * time.Millisecond,
		QueueMaxRetryInterval: time.Second,
	}
}
