// jdbinspect dumps and verifies jdb database files.
//
// Usage:
//
//	jdbinspect -db data.jdb -header
//	jdbinspect -db data.jdb -page 3
//	jdbinspect -db data.jdb -verify
package main

import (
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/SimonWaldherr/jdb/internal/storage/pager"
)

func main() {
	dbPath := flag.String("db", "", "Path to the database file")
	showHeader := flag.Bool("header", false, "Dump the file header")
	pageID := flag.Int("page", -1, "Dump a single page by ID")
	verify := flag.Bool("verify", false, "Verify the integrity of the whole file")
	flag.Parse()

	if *dbPath == "" {
		flag.Usage()
		log.Fatal("missing -db")
	}
	if !*showHeader && *pageID < 0 && !*verify {
		flag.Usage()
		log.Fatal("nothing to do: pass -header, -page or -verify")
	}

	if *showHeader {
		info, err := pager.InspectHeader(*dbPath)
		if err != nil {
			log.Fatalf("inspect header: %v", err)
		}
		printHeader(info)
	}

	if *pageID >= 0 {
		info, err := pager.InspectPage(*dbPath, pager.PageID(*pageID))
		if err != nil {
			log.Fatalf("inspect page %d: %v", *pageID, err)
		}
		printPage(info)
	}

	if *verify {
		issues, err := pager.VerifyFile(*dbPath)
		if err != nil {
			log.Fatalf("verify: %v", err)
		}
		if len(issues) == 0 {
			fmt.Println("ok: no issues found")
			return
		}
		for _, issue := range issues {
			fmt.Println(issue)
		}
		log.Fatalf("%d issue(s) found", len(issues))
	}
}

func printHeader(info *pager.HeaderInfo) {
	fmt.Printf("version:        %d\n", info.Version)
	fmt.Printf("header size:    %d\n", info.HeaderSize)
	fmt.Printf("page size:      %d\n", info.PageSize)
	fmt.Printf("page count:     %d\n", info.PageCount)
	fmt.Printf("free list head: %d\n", info.FreeListHead)
	fmt.Printf("data pages:     %d..%d\n", info.FirstDataPage, info.LastDataPage)
	fmt.Printf("created:        %s\n", time.Unix(int64(info.CreatedAt), 0).UTC().Format(time.RFC3339))
	fmt.Printf("modified:       %s\n", time.Unix(int64(info.LastModified), 0).UTC().Format(time.RFC3339))
	fmt.Printf("data checksums: %v\n", info.DataChecksums)
	fmt.Printf("checksum valid: %v\n", info.ChecksumValid)
}

func printPage(info *pager.PageInfo) {
	fmt.Printf("page:           %d\n", info.ID)
	fmt.Printf("type:           %s\n", info.TypeStr)
	fmt.Printf("slots:          %d (%d live, %d deleted)\n", info.SlotCount, info.LiveRecords, info.DeletedCount)
	fmt.Printf("free space:     %d bytes\n", info.FreeSpace)
	fmt.Printf("used space:     %d bytes (%.1f%%)\n", info.UsedSpace, info.FillPercentage)
	fmt.Printf("lsn:            %d\n", info.LSN)
	fmt.Printf("checksum:       %08x (valid: %v)\n", info.Checksum, info.ChecksumValid)
}
