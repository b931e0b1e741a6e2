package pbf

import (
	"context"
	"fmt"
	"io"

	"golang.org/x/sync/errgroup"

	"github.com/nucleus/osmix/pkg/osmerr"
)

const (
	blobTypeHeader = "OSMHeader"
	blobTypeData   = "OSMData"
)

// Reader produces the lazy sequence of PrimitiveBlock values described
// by §4.7. It reads exactly one OSMHeader blob up front (exposed via
// Header) and then yields OSMData blobs one at a time via the
// Next/Value/Err/Close pull contract, matching
// entitystore.Iterator[*PrimitiveBlock].
//
// Per §5, decompressing and decoding a block's payload is CPU-bound
// and independent of every other block, so a Reader with concurrency
// above 1 fans that work out across a bounded worker pool while the
// underlying io.Reader is still only ever touched by one goroutine at
// a time (raw blob framing is sequential; only the zlib inflate +
// protobuf parse happens in parallel). Next still yields blocks in
// file order.
type Reader struct {
	r      io.Reader
	header *HeaderBlock
	cur    *PrimitiveBlock
	err    error
	done   bool

	concurrency int
	started     bool
	results     chan chan blockResult
}

type blockResult struct {
	block *PrimitiveBlock
	err   error
}

// NewReader is NewReaderConcurrency(r, 1): blocks are decoded
// sequentially, one at a time, as they're read.
func NewReader(r io.Reader) (*Reader, error) {
	return NewReaderConcurrency(r, 1)
}

// NewReaderConcurrency reads and validates the file's leading
// OSMHeader blob and returns a Reader that decodes up to concurrency
// blocks in parallel while still yielding them via Next in file order.
// concurrency below 1 is treated as 1.
func NewReaderConcurrency(r io.Reader, concurrency int) (*Reader, error) {
	blobType, payload, err := readFileBlock(r)
	if err != nil {
		if err == io.EOF {
			return nil, osmerr.ShortRead(fmt.Errorf("empty PBF stream: missing OSMHeader"))
		}
		return nil, err
	}
	if blobType != blobTypeHeader {
		return nil, osmerr.BadMagic(fmt.Errorf("first fileblock type %q, want %q", blobType, blobTypeHeader))
	}
	header, err := decodeHeaderBlock(payload)
	if err != nil {
		return nil, err
	}
	if concurrency < 1 {
		concurrency = 1
	}
	return &Reader{r: r, header: header, concurrency: concurrency}, nil
}

// Header returns the file's decoded header block.
func (rd *Reader) Header() *HeaderBlock { return rd.header }

// Next advances to the next PrimitiveBlock, returning false at
// end-of-stream or on error (check Err to distinguish).
func (rd *Reader) Next() bool {
	if rd.done || rd.err != nil {
		return false
	}
	if !rd.started {
		rd.started = true
		rd.start()
	}
	ch, ok := <-rd.results
	if !ok {
		rd.done = true
		return false
	}
	res := <-ch
	if res.err != nil {
		rd.err = res.err
		return false
	}
	rd.cur = res.block
	return true
}

// Value returns the block most recently produced by Next.
func (rd *Reader) Value() *PrimitiveBlock { return rd.cur }

// Err returns the first error encountered, if any.
func (rd *Reader) Err() error { return rd.err }

// Close releases the underlying reader if it implements io.Closer.
func (rd *Reader) Close() error {
	if c, ok := rd.r.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// start launches the single sequential-read/parallel-decode producer
// goroutine. results carries one channel per block, in file order;
// each block's own channel is filled in by whichever worker decoded
// it, so a slow block never blocks a faster one behind it from
// finishing its work, only from being delivered before it.
func (rd *Reader) start() {
	rd.results = make(chan chan blockResult, rd.concurrency*2)
	go rd.produce()
}

func (rd *Reader) produce() {
	defer close(rd.results)

	g, _ := errgroup.WithContext(context.Background())
	g.SetLimit(rd.concurrency)

	for {
		blobType, payload, err := readFileBlock(rd.r)
		if err != nil {
			if err != io.EOF {
				ch := make(chan blockResult, 1)
				ch <- blockResult{err: err}
				rd.results <- ch
			}
			break
		}
		if blobType != blobTypeData {
			ch := make(chan blockResult, 1)
			ch <- blockResult{err: osmerr.BadMagic(fmt.Errorf("unexpected fileblock type %q, want %q", blobType, blobTypeData))}
			rd.results <- ch
			break
		}

		ch := make(chan blockResult, 1)
		rd.results <- ch
		payload := payload
		g.Go(func() error {
			block, err := decodePrimitiveBlock(payload)
			ch <- blockResult{block: block, err: err}
			return nil
		})
	}
	g.Wait()
}
