package config

import (
	"flag"
	"io"

	"github.com/dmitrijs2005/filesmanager/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags:
//
//	-a string   HTTP bind address (e.g. ":5000")
//	-m string   metadata backend: postgres | badger
//	-d string   PostgreSQL DSN
//	-r string   Redis address
//	-q string   AMQP URL
//	-n string   queue name
//	-w int      worker concurrency
//	-s string   storage backend: local | s3
//	-f string   storage folder path (local) or key prefix (s3)
//	-l string   log level
//	-worker     run the thumbnail worker in-process
//
// Unknown arguments are filtered out first with flagx.FilterArgs.
func parseFlags(config *Config, args []string) error {
	args = flagx.FilterArgs(args, []string{"-a", "-m", "-d", "-r", "-q", "-n", "-w", "-s", "-f", "-l", "-worker"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&config.HTTPAddr, "a", config.HTTPAddr, "address and port to run server")
	fs.StringVar(&config.MetadataBackend, "m", config.MetadataBackend, "metadata backend")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.RedisAddr, "r", config.RedisAddr, "redis address")
	fs.StringVar(&config.AMQPURL, "q", config.AMQPURL, "AMQP URL")
	fs.StringVar(&config.QueueName, "n", config.QueueName, "thumbnail queue name")
	fs.IntVar(&config.WorkerConcurrency, "w", config.WorkerConcurrency, "thumbnail worker concurrency")
	fs.StringVar(&config.StorageBackend, "s", config.StorageBackend, "blob storage backend")
	fs.StringVar(&config.FolderPath, "f", config.FolderPath, "blob storage folder path")
	fs.StringVar(&config.LogLevel, "l", config.LogLevel, "log level")
	fs.BoolVar(&config.RunWorker, "worker", config.RunWorker, "run thumbnail worker in-process")

	return fs.Parse(args)
}
