package main

import (
	"bufio"
	"flag"
	"fmt"
	"log"
	"os"
	"slices"

	"blinkpage/cli"
	"blinkpage/itemptr"
	"blinkpage/node"
	"blinkpage/nodestore"
	"blinkpage/pagecodec"
	"blinkpage/pagestore"

	"github.com/go-faker/faker/v4"
)

var (
	dataFile                          *string
	pageSize, seedNumRecords            *int
	order                             *uint
	shouldReset, shouldSeed, compress *bool
)

type seedKeys struct {
	Keys []uint32 `faker:"slice_len=8"`
}

// seedPages fills pages 0..n-1 with random leaves chained left to right through their links.
func seedPages(s *nodestore.Store[uint32]) error {
	for i := 0; i < *seedNumRecords; i++ {
		var sk seedKeys
		if err := faker.FakeData(&sk); err != nil {
			return err
		}
		slices.Sort(sk.Keys)
		values := make([]itemptr.ItemPtr, len(sk.Keys))
		for j := range values {
			values[j] = itemptr.New(int32(*seedNumRecords+i), uint32(j*itemptr.Size))
		}
		link := itemptr.Null()
		if i+1 < *seedNumRecords {
			link = itemptr.New(int32(i+1), 0)
		}
		n, err := node.New[uint32](uint32(*order), itemptr.New(int32(i), 0), link, sk.Keys, values)
		if err != nil {
			return err
		}
		if err := s.Put(n); err != nil {
			return err
		}
	}
	return nil
}

func main() {
	setupFlags()

	codec, err := pagecodec.New[uint32](pagecodec.Config{PageSize: *pageSize, Compress: *compress})
	if err != nil {
		log.Fatal(err)
	}
	pager, err := pagestore.OpenFile(*dataFile, *pageSize, *shouldReset)
	if err != nil {
		log.Fatal(err)
	}
	defer pager.Close()

	store, err := nodestore.New[uint32](pager, codec)
	if err != nil {
		log.Fatal(err)
	}

	if *shouldSeed {
		if err := seedPages(store); err != nil {
			log.Fatal(err)
		}
		log.Printf("seeded %d pages in %s", *seedNumRecords, *dataFile)
	}

	scanner := bufio.NewScanner(os.Stdin)
	demo := cli.NewCli(scanner, store, uint32(*order), os.Stdout)
	demo.Start()
}

func setupFlags() {
	dataFile = flag.String("file", "blink.db", "Page file to open or create.")
	pageSize = flag.Int("page-size", pagecodec.DefaultPageSize, "Page size in bytes. Must match the size the file was written with.")
	order = flag.Uint("order", 4, "Fan-out recorded in new nodes.")
	compress = flag.Bool("compress", false, "Store nodes snappy-compressed.")
	shouldReset = flag.Bool("reset", false, "Truncate the page file before startup.")
	shouldSeed = flag.Bool("seed", false, "Seed the file with random leaves created with go-faker.")
	seedNumRecords = flag.Int("records", 16, "Amount of leaf pages to seed upon startup.")
	flag.Usage = func() {
		fmt.Println("\nB-Link Page CLI\n\nArguments:")
		flag.PrintDefaults()
	}
	flag.Parse()
}
