package applog

import (
	"io"
	"testing"
)

func createBenchLogger(b *testing.B) *Logger {
	b.Helper()
	logger, err := NewBuilder().Directory(b.TempDir()).Build()
	if err != nil {
		b.Fatal(err)
	}
	logger.fallback = io.Discard
	return logger
}

func BenchmarkLoggerInfo(b *testing.B) {
	logger := createBenchLogger(b)
	defer logger.Close()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		logger.Info("benchmark message", i)
	}
}

func BenchmarkLoggerStructured(b *testing.B) {
	logger := createBenchLogger(b)
	defer logger.Close()

	fields := map[string]any{
		"user_id": 123,
		"action":  "benchmark",
		"value":   42.5,
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		logger.Info("benchmark", fields)
	}
}

func BenchmarkLoggerFiltered(b *testing.B) {
	logger := createBenchLogger(b)
	defer logger.Close()
	logger.SetLevel(LevelError)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		logger.Debug("filtered", i)
	}
}

func BenchmarkLoggerRotating(b *testing.B) {
	storage := NewMemoryStorage()
	logger, err := NewBuilder().Storage(storage).MaxSizeBytes(4096).MaxFiles(3).Build()
	if err != nil {
		b.Fatal(err)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		logger.Info("rotating", i)
	}
}

func BenchmarkConcurrentLogging(b *testing.B) {
	logger := createBenchLogger(b)
	defer logger.Close()

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		i := 0
		for pb.Next() {
			logger.Info("concurrent", i)
			i++
		}
	})
}
