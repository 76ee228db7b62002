package pager

import "encoding/binary"

// ───────────────────────────────────────────────────────────────────────────
// Slotted records
// ───────────────────────────────────────────────────────────────────────────
//
// Records live in a heap that grows downward from the end of the page;
// the slot directory grows upward from the header. Deleting a record
// tombstones its slot (length 0) without moving anything, so slot
// indices are stable identifiers. Compact reclaims tombstoned space by
// sliding live records to the high end of the page, keeping every slot
// index in place.

// NoSlot is the batch-result marker for a record that could not be stored.
const NoSlot = -1

// GetSlot returns the slot entry at index i. The second return is false
// when i is out of range or the entry itself would lie outside the page.
func (p *Page) GetSlot(i int) (SlotEntry, bool) {
	if i < 0 || i >= int(p.SlotCount()) {
		return SlotEntry{}, false
	}
	off := PageHeaderSize + i*SlotSize
	if off+SlotSize > PageSize {
		return SlotEntry{}, false
	}
	return SlotEntry{
		Offset: binary.LittleEndian.Uint16(p.data[off:]),
		Length: binary.LittleEndian.Uint16(p.data[off+2:]),
	}, true
}

func (p *Page) setSlot(i int, e SlotEntry) {
	off := PageHeaderSize + i*SlotSize
	binary.LittleEndian.PutUint16(p.data[off:], e.Offset)
	binary.LittleEndian.PutUint16(p.data[off+2:], e.Length)
}

// GetRecord returns the raw bytes of the record at slot i, or nil if the
// slot does not exist, is tombstoned, or points outside the page. The
// slice aliases the page and is invalidated by Compact.
func (p *Page) GetRecord(i int) []byte {
	slot, ok := p.GetSlot(i)
	if !ok || slot.Length == 0 {
		return nil
	}
	start := int(slot.Offset)
	end := start + int(slot.Length)
	if end > PageSize {
		return nil
	}
	return p.data[start:end]
}

// FreeSpace returns the number of bytes between the slot directory and
// the record heap. Zero when the header is inconsistent.
func (p *Page) FreeSpace() int {
	slotDirEnd := PageHeaderSize + int(p.SlotCount())*SlotSize
	end := int(p.FreeSpaceEnd())
	if end > PageSize || slotDirEnd > end {
		return 0
	}
	return end - slotDirEnd
}

// HasSpaceFor reports whether a record of the given size plus one new
// slot entry would fit.
func (p *Page) HasSpaceFor(size int) bool {
	return p.FreeSpace() >= size+SlotSize
}

// AddRecord stores record in the heap and appends a slot for it,
// returning the new slot index. Empty records are rejected: a length of
// zero is the tombstone marker and could never be read back. The heap
// boundary is re-checked against the grown directory even after
// HasSpaceFor, so a corrupted header fails the insert instead of
// clobbering the directory.
func (p *Page) AddRecord(record []byte) (int, error) {
	if len(record) == 0 {
		return NoSlot, ErrEmptyRecord
	}
	if !p.HasSpaceFor(len(record)) {
		return NoSlot, PageFullError{ID: p.ID(), Need: len(record) + SlotSize, Have: p.FreeSpace()}
	}

	slotIndex := int(p.SlotCount())
	boundary := int(p.FreeSpaceEnd())
	if boundary > PageSize || len(record) > boundary {
		return NoSlot, PageFullError{ID: p.ID(), Need: len(record), Have: 0}
	}
	newStart := boundary - len(record)
	slotDirEnd := PageHeaderSize + (slotIndex+1)*SlotSize
	if newStart < slotDirEnd {
		return NoSlot, PageFullError{ID: p.ID(), Need: len(record) + SlotSize, Have: p.FreeSpace()}
	}

	copy(p.data[newStart:boundary], record)
	p.setSlot(slotIndex, SlotEntry{Offset: uint16(newStart), Length: uint16(len(record))})
	p.setFreeSpaceEnd(newStart)
	p.setSlotCount(slotIndex + 1)

	return slotIndex, nil
}

// AddRecords inserts a batch of records. When the whole batch fits it is
// stored under a single header update, yielding consecutive slot
// indices; otherwise each record is tried individually and the result
// slice carries NoSlot for the ones that failed.
func (p *Page) AddRecords(records [][]byte) []int {
	if len(records) == 0 {
		return nil
	}

	total := 0
	for _, r := range records {
		if len(r) == 0 {
			return p.addRecordsPartial(records)
		}
		total += len(r)
	}
	if p.FreeSpace() < total+len(records)*SlotSize {
		return p.addRecordsPartial(records)
	}

	slot := int(p.SlotCount())
	boundary := int(p.FreeSpaceEnd())
	slotDirEnd := PageHeaderSize + (slot+len(records))*SlotSize
	if boundary > PageSize || boundary < total || boundary-total < slotDirEnd {
		return p.addRecordsPartial(records)
	}

	results := make([]int, 0, len(records))
	for _, r := range records {
		newStart := boundary - len(r)
		copy(p.data[newStart:boundary], r)
		p.setSlot(slot, SlotEntry{Offset: uint16(newStart), Length: uint16(len(r))})
		results = append(results, slot)
		slot++
		boundary = newStart
	}

	p.setFreeSpaceEnd(boundary)
	p.setSlotCount(slot)

	return results
}

func (p *Page) addRecordsPartial(records [][]byte) []int {
	results := make([]int, 0, len(records))
	for _, r := range records {
		idx, err := p.AddRecord(r)
		if err != nil {
			idx = NoSlot
		}
		results = append(results, idx)
	}
	return results
}

// DeleteRecord tombstones slot i. It reports whether the slot existed;
// deleting an already-tombstoned slot returns true again. Space is not
// reclaimed and no slot index shifts.
func (p *Page) DeleteRecord(i int) bool {
	slot, ok := p.GetSlot(i)
	if !ok {
		return false
	}
	p.setSlot(i, SlotEntry{Offset: slot.Offset, Length: 0})
	return true
}

// DeleteRecords tombstones a batch of slots and returns how many were
// newly tombstoned. Out-of-range indices and existing tombstones are
// skipped.
func (p *Page) DeleteRecords(indices []int) int {
	deleted := 0
	for _, i := range indices {
		slot, ok := p.GetSlot(i)
		if !ok || slot.Length == 0 {
			continue
		}
		p.setSlot(i, SlotEntry{Offset: slot.Offset, Length: 0})
		deleted++
	}
	return deleted
}

// DeletedCount returns the number of tombstoned slots.
func (p *Page) DeletedCount() int {
	count := 0
	for i := 0; i < int(p.SlotCount()); i++ {
		if slot, ok := p.GetSlot(i); ok && slot.Length == 0 {
			count++
		}
	}
	return count
}

// LiveRecords returns the number of non-tombstoned slots.
func (p *Page) LiveRecords() int {
	return int(p.SlotCount()) - p.DeletedCount()
}

// ShouldCompact reports whether compaction would pay off: more than one
// slot, at least two tombstones, and more than 20% of slots tombstoned.
func (p *Page) ShouldCompact() bool {
	total := int(p.SlotCount())
	if total <= 1 {
		return false
	}
	deleted := p.DeletedCount()
	return deleted >= 2 && deleted*100/total > 20
}

// Compact slides live records to the high end of the page, reclaiming
// the space of tombstoned ones. Slot indices are preserved; tombstones
// stay in place with length 0. A slot whose range escapes the page is
// tombstoned rather than copied. No-op unless ShouldCompact; calling it
// again is harmless.
func (p *Page) Compact() {
	if !p.ShouldCompact() {
		return
	}

	write := PageSize
	for i := 0; i < int(p.SlotCount()); i++ {
		slot, ok := p.GetSlot(i)
		if !ok || slot.Length == 0 {
			continue
		}
		start := int(slot.Offset)
		end := start + int(slot.Length)
		if end > PageSize {
			p.setSlot(i, SlotEntry{Offset: 0, Length: 0})
			continue
		}

		newStart := write - int(slot.Length)
		if newStart != start {
			// Regions may overlap; copy is memmove-safe.
			copy(p.data[newStart:write], p.data[start:end])
			p.setSlot(i, SlotEntry{Offset: uint16(newStart), Length: slot.Length})
		}
		write = newStart
	}

	p.setFreeSpaceEnd(write)
}

// UsedSpace returns header + slot directory + record heap bytes.
func (p *Page) UsedSpace() int {
	slots := int(p.SlotCount()) * SlotSize
	records := PageSize - int(p.FreeSpaceEnd())
	return PageHeaderSize + slots + records
}

// FillPercentage returns UsedSpace as a percentage of the page size.
func (p *Page) FillPercentage() float64 {
	return float64(p.UsedSpace()) / float64(PageSize) * 100.0
}
