package kafka_config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, []string{"localhost:9092"}, cfg.Brokers)
	assert.Equal(t, "snappy", cfg.ProducerCompression)
	assert.EqualValues(t, -2, cfg.ConsumerStartOffset)
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv(EnvKafkaBrokers, " k1:9092 , ,k2:9092")
	t.Setenv(EnvKafkaConsumerRetryBackoff, "1s")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Brokers)
	assert.Equal(t, time.Second, cfg.ConsumerRetryBackoff)
}

func TestValidate_CollectsErrors(t *testing.T) {
	cfg := &Config{
		ProducerCompression: "brotli",
		ProducerRequireAcks: 5,
		ConsumerStartOffset: 3,
	}

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "At least one Kafka broker is required")
	assert.Contains(t, err.Error(), "ProducerCompression")
	assert.Contains(t, err.Error(), "ProducerRequireAcks")
	assert.Contains(t, err.Error(), "ConsumerStartOffset")
}
