package main

import (
	"bytes"
	"fmt"
	"io"
	"math/rand"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/pingpengyao/cryfa"
	"github.com/pingpengyao/cryfa/container"
)

func newRoundtripCmd(logger *logrus.Logger) *cobra.Command {
	var numReads int
	var readLen int
	var seed int64
	var blockThreshold uint64

	cmd := &cobra.Command{
		Use:   "roundtrip",
		Short: "Compress a synthetic read fixture, decompress it, and report read, base and byte totals",
		RunE: func(cmd *cobra.Command, args []string) error {
			reads := syntheticReads(numReads, readLen, seed)

			var buf bytes.Buffer
			w, err := container.NewWriter(&buf,
				container.WithLogger(logger),
				container.WithBlockThreshold(blockThreshold),
			)
			if err != nil {
				return fmt.Errorf("open writer: %w", err)
			}
			for _, r := range reads {
				if err := w.Admit(r); err != nil {
					return fmt.Errorf("admit read: %w", err)
				}
			}
			if err := w.Close(); err != nil {
				return fmt.Errorf("close writer: %w", err)
			}

			r, err := container.NewReader(&buf, container.WithLogger(logger))
			if err != nil {
				return fmt.Errorf("open reader: %w", err)
			}

			var got int
			var bases uint64
			for {
				read, err := r.Next()
				if err == io.EOF {
					break
				}
				if err != nil {
					return fmt.Errorf("decode read: %w", err)
				}
				got++
				bases += uint64(len(read.Seq))
			}

			fmt.Fprintf(cmd.OutOrStdout(), "wrote %d reads, read back %d reads, %d bases, %d compressed bytes\n", len(reads), got, bases, buf.Len())
			return nil
		},
	}

	cmd.Flags().IntVar(&numReads, "reads", 20000, "number of synthetic reads to generate")
	cmd.Flags().IntVar(&readLen, "read-length", 100, "length of each synthetic read")
	cmd.Flags().Int64Var(&seed, "seed", 1, "PRNG seed for the synthetic fixture")
	cmd.Flags().Uint64Var(&blockThreshold, "block-threshold", 5_000_000, "BLOCK_THRESHOLD override, in uncompressed sequence bases")

	return cmd
}

var bases4 = [4]byte{'A', 'C', 'G', 'T'}

func syntheticReads(n, length int, seed int64) []cryfa.Read {
	rng := rand.New(rand.NewSource(seed))
	reads := make([]cryfa.Read, n)
	for i := range reads {
		seq := make([]byte, length)
		qual := make([]byte, length)
		for j := range seq {
			seq[j] = bases4[rng.Intn(4)]
			qual[j] = byte('!' + rng.Intn(40))
		}
		reads[i] = cryfa.Read{
			ID:   []byte(fmt.Sprintf("synthetic-read-%d", i)),
			Seq:  seq,
			Qual: qual,
		}
	}
	return reads
}
