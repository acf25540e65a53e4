package fixme

import (
	"encoding/binary"

	"github.com/ogrid/graphcore/internal/writer"
	"github.com/ogrid/graphcore/internal/xio"
)

// Header is errorlog.mem's fixed header: total record count, the
// count with a real coordinate (the geo-sorted prefix length; the
// rest is the NO_LATLONG trailing section), and the bin grid used for
// that prefix's prefix-sum index.
type Header struct {
	Count    uint32
	GeoCount uint32
	LatBins  uint32
	LonBins  uint32
	LatZero  int32
	LonZero  int32
}

const headerSize = 4*4 + 4 + 4

func (h Header) encode() []byte {
	buf := make([]byte, headerSize)
	binary.LittleEndian.PutUint32(buf[0:4], h.Count)
	binary.LittleEndian.PutUint32(buf[4:8], h.GeoCount)
	binary.LittleEndian.PutUint32(buf[8:12], h.LatBins)
	binary.LittleEndian.PutUint32(buf[12:16], h.LonBins)
	binary.LittleEndian.PutUint32(buf[16:20], uint32(h.LatZero))
	binary.LittleEndian.PutUint32(buf[20:24], uint32(h.LonZero))
	return buf
}

func (r ErrorLogX) encode(buf []byte) {
	binary.LittleEndian.PutUint64(buf[0:8], uint64(r.Offset))
	binary.LittleEndian.PutUint32(buf[8:12], r.Length)
	binary.LittleEndian.PutUint32(buf[12:16], uint32(r.Lat))
	binary.LittleEndian.PutUint32(buf[16:20], uint32(r.Lon))
}

// WriteErrorLog emits dir/errorlog.mem as
// [Header][PrefixSumIndex][Records], computing the prefix-sum array
// over the geo-sorted prefix of sorted (per §4.I's convention),
// atomically and checksummed via writer.AtomicWrite.
func WriteErrorLog(dir string, sorted []ErrorLogX, geo writer.GeoIndex) error {
	var geoCount int
	for _, rec := range sorted {
		if rec.HasCoord {
			geoCount++
		}
	}

	counts := make([]uint32, geo.NumBins())
	for _, rec := range sorted[:geoCount] {
		latbin, lonbin := geo.Bin(writer.Coord{Lat: rec.Lat, Lon: rec.Lon})
		counts[geo.FlatBin(latbin, lonbin)]++
	}
	offsets := writer.PrefixSum(counts)

	hdr := Header{
		Count:    uint32(len(sorted)),
		GeoCount: uint32(geoCount),
		LatBins:  uint32(geo.LatBins),
		LonBins:  uint32(geo.LonBins),
		LatZero:  geo.LatZero,
		LonZero:  geo.LonZero,
	}

	return writer.AtomicWrite(dir, "errorlog.mem", func(w *xio.SeqWriter) error {
		if _, err := w.Write(hdr.encode()); err != nil {
			return err
		}
		offBuf := make([]byte, 4)
		for _, o := range offsets {
			binary.LittleEndian.PutUint32(offBuf, o)
			if _, err := w.Write(offBuf); err != nil {
				return err
			}
		}
		buf := make([]byte, errorLogXSize)
		for _, rec := range sorted {
			rec.encode(buf)
			if _, err := w.Write(buf); err != nil {
				return err
			}
		}
		return nil
	})
}
