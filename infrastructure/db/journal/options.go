package journal

import "github.com/syndtr/goleveldb/leveldb/opt"

var (
	// The journal holds a handful of small entries per operation, so the
	// caches are far smaller than a chain database would use.
	defaultOptions = opt.Options{
		Compression:        opt.NoCompression,
		BlockCacheCapacity: 4 * opt.MiB,
		WriteBuffer:        1 * opt.MiB,
	}

	// Options returns the leveldb options the journal is opened with.
	// It's defined as a variable for the sake of testing.
	Options = func() *opt.Options {
		return &defaultOptions
	}
)
