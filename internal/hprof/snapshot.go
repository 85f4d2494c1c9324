package hprof

import (
	"fmt"
	"io"
	"os"
	"strings"
)

type instanceRecord struct {
	classID uint64
	fields  []FieldRef
}

type arrayRecord struct {
	classID   uint64
	className string
	elements  []Element
}

type classObjectRecord struct {
	className    string
	superID      uint64
	staticFields []FieldRef
}

// Stats summarizes the object population of a parsed snapshot, for report
// headers.
type Stats struct {
	Classes         int
	Instances       int
	ObjectArrays    int
	PrimitiveArrays int
	GCRoots         int
}

// Snapshot is a fully parsed, read-only view of one HPROF heap dump held in
// memory. It implements the object resolution and GC-root enumeration the
// retention-path core consumes; it has no notion of leaks or retention.
type Snapshot struct {
	Path   string
	Header *Header
	idSize int

	classNameByID map[uint64]string
	classSuperByID map[uint64]uint64
	classIDByName  map[string]uint64

	instances       map[uint64]*instanceRecord
	arrays          map[uint64]*arrayRecord
	classObjects    map[uint64]*classObjectRecord
	primitiveArrays map[uint64]struct{}

	instanceScanOrder []uint64
	gcRoots           []GCRoot
	stats             Stats
}

// Parse reads the HPROF file at path into memory.
func Parse(path string) (*Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open snapshot: %w", err)
	}
	defer f.Close()

	s := &Snapshot{
		Path:            path,
		classNameByID:   make(map[uint64]string),
		classSuperByID:  make(map[uint64]uint64),
		classIDByName:   make(map[string]uint64),
		instances:       make(map[uint64]*instanceRecord),
		arrays:          make(map[uint64]*arrayRecord),
		classObjects:    make(map[uint64]*classObjectRecord),
		primitiveArrays: make(map[uint64]struct{}),
	}

	r := newReader(f)
	header, err := r.ReadHeader()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	s.Header = header
	s.idSize = header.IDSize

	strings_ := make(map[uint64]string)
	classNameIDs := make(map[uint64]uint64) // classID -> name string id
	classFieldDecls := make(map[uint64][]fieldDecl)

	for {
		tag, _, length, err := r.ReadRecordHeader()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read record header: %w", err)
		}

		switch tag {
		case TagString:
			id, err := r.ReadID()
			if err != nil {
				return nil, fmt.Errorf("string record: %w", err)
			}
			strLen := int(length) - r.IDSize()
			if strLen < 0 {
				return nil, fmt.Errorf("string record: negative length")
			}
			b, err := r.ReadBytes(strLen)
			if err != nil {
				return nil, fmt.Errorf("string record: %w", err)
			}
			strings_[id] = string(b)

		case TagLoadClass:
			if _, err := r.ReadUint32(); err != nil {
				return nil, err
			}
			classID, err := r.ReadID()
			if err != nil {
				return nil, err
			}
			if _, err := r.ReadUint32(); err != nil {
				return nil, err
			}
			nameID, err := r.ReadID()
			if err != nil {
				return nil, err
			}
			classNameIDs[classID] = nameID

		case TagHeapDump, TagHeapDumpSegment:
			if err := s.parseHeapDumpBody(r, int64(length), strings_, classNameIDs, classFieldDecls); err != nil {
				return nil, fmt.Errorf("heap dump body: %w", err)
			}

		case TagHeapSummary:
			if err := r.Skip(16); err != nil {
				return nil, err
			}

		default:
			if err := r.Skip(int64(length)); err != nil {
				return nil, err
			}
		}
	}

	for classID, nameID := range classNameIDs {
		if name, ok := strings_[nameID]; ok {
			n := normalizeClassName(name)
			s.classNameByID[classID] = n
			s.classIDByName[n] = classID
		}
	}
	for classID, rec := range s.classObjects {
		rec.className = s.classNameByID[classID]
	}
	for _, rec := range s.arrays {
		rec.className = s.classNameByID[rec.classID]
	}

	s.stats = Stats{
		Classes:         len(s.classObjects),
		Instances:       len(s.instances),
		ObjectArrays:    len(s.arrays),
		PrimitiveArrays: len(s.primitiveArrays),
		GCRoots:         len(s.gcRoots),
	}

	return s, nil
}

type fieldDecl struct {
	nameID uint64
	typ    BasicType
}

// parseHeapDumpBody parses one HEAP_DUMP / HEAP_DUMP_SEGMENT payload.
func (s *Snapshot) parseHeapDumpBody(r *reader, length int64, strs map[uint64]string, classNameIDs map[uint64]uint64, classFieldDecls map[uint64][]fieldDecl) error {
	var consumed int64
	for consumed < length {
		tagByte, err := r.ReadByte()
		if err != nil {
			return err
		}
		consumed++

		n, err := s.parseHeapDumpSubRecord(r, HeapDumpTag(tagByte), strs, classNameIDs, classFieldDecls)
		if err != nil {
			return err
		}
		consumed += n
	}
	return nil
}

func (s *Snapshot) parseHeapDumpSubRecord(r *reader, tag HeapDumpTag, strs map[uint64]string, classNameIDs map[uint64]uint64, classFieldDecls map[uint64][]fieldDecl) (int64, error) {
	idSize := r.IDSize()

	switch tag {
	case HeapTagRootJNIGlobal:
		id, err := r.ReadID()
		if err != nil {
			return 0, err
		}
		if err := r.Skip(int64(idSize)); err != nil {
			return 0, err
		}
		s.addRoot(id, tag)
		return int64(idSize * 2), nil

	case HeapTagRootJNILocal, HeapTagRootJavaFrame:
		id, err := r.ReadID()
		if err != nil {
			return 0, err
		}
		if err := r.Skip(8); err != nil {
			return 0, err
		}
		s.addRoot(id, tag)
		return int64(idSize + 8), nil

	case HeapTagRootNativeStack, HeapTagRootThreadBlock:
		id, err := r.ReadID()
		if err != nil {
			return 0, err
		}
		if err := r.Skip(4); err != nil {
			return 0, err
		}
		s.addRoot(id, tag)
		return int64(idSize + 4), nil

	case HeapTagRootStickyClass, HeapTagRootMonitorUsed, HeapTagRootUnknown,
		HeapTagRootInternedString, HeapTagRootFinalizing, HeapTagRootDebugger,
		HeapTagRootReferenceClean, HeapTagRootVMInternal, HeapTagRootUnreachable:
		id, err := r.ReadID()
		if err != nil {
			return 0, err
		}
		s.addRoot(id, tag)
		return int64(idSize), nil

	case HeapTagRootThreadObject:
		id, err := r.ReadID()
		if err != nil {
			return 0, err
		}
		if err := r.Skip(8); err != nil {
			return 0, err
		}
		s.addRoot(id, tag)
		return int64(idSize + 8), nil

	case HeapTagRootJNIMonitor:
		id, err := r.ReadID()
		if err != nil {
			return 0, err
		}
		if err := r.Skip(8); err != nil {
			return 0, err
		}
		s.addRoot(id, tag)
		return int64(idSize + 8), nil

	case HeapTagHeapDumpInfo:
		if _, err := r.ReadUint32(); err != nil {
			return 0, err
		}
		if _, err := r.ReadID(); err != nil {
			return 0, err
		}
		return int64(4 + idSize), nil

	case HeapTagClassDump:
		return s.parseClassDump(r, strs, classFieldDecls)

	case HeapTagInstanceDump:
		return s.parseInstanceDump(r, strs, classFieldDecls)

	case HeapTagObjectArrayDump:
		return s.parseObjectArrayDump(r)

	case HeapTagPrimitiveArrayDump:
		return s.parsePrimitiveArrayDump(r)

	default:
		return 0, fmt.Errorf("unknown heap dump tag: 0x%02X", tag)
	}
}

func (s *Snapshot) addRoot(id uint64, tag HeapDumpTag) {
	s.gcRoots = append(s.gcRoots, GCRoot{ObjectID: id, Kind: rootKindForTag(tag)})
}

func (s *Snapshot) parseClassDump(r *reader, strs map[uint64]string, classFieldDecls map[uint64][]fieldDecl) (int64, error) {
	idSize := r.IDSize()
	var n int64

	classID, err := r.ReadID()
	if err != nil {
		return 0, err
	}
	n += int64(idSize)

	if _, err := r.ReadUint32(); err != nil {
		return 0, err
	}
	n += 4

	superID, err := r.ReadID()
	if err != nil {
		return 0, err
	}
	n += int64(idSize)

	if err := r.Skip(int64(idSize * 5)); err != nil {
		return 0, err
	}
	n += int64(idSize * 5)

	if _, err := r.ReadUint32(); err != nil { // instance size
		return 0, err
	}
	n += 4

	cpSize, err := r.ReadUint16()
	if err != nil {
		return 0, err
	}
	n += 2
	for i := 0; i < int(cpSize); i++ {
		if _, err := r.ReadUint16(); err != nil {
			return 0, err
		}
		n += 2
		typeByte, err := r.ReadByte()
		if err != nil {
			return 0, err
		}
		n++
		sz := BasicTypeSize(BasicType(typeByte), idSize)
		if err := r.Skip(int64(sz)); err != nil {
			return 0, err
		}
		n += int64(sz)
	}

	staticCount, err := r.ReadUint16()
	if err != nil {
		return 0, err
	}
	n += 2
	var staticFields []FieldRef
	for i := 0; i < int(staticCount); i++ {
		nameID, err := r.ReadID()
		if err != nil {
			return 0, err
		}
		n += int64(idSize)
		typeByte, err := r.ReadByte()
		if err != nil {
			return 0, err
		}
		n++
		val, err := r.ReadValue(BasicType(typeByte))
		if err != nil {
			return 0, err
		}
		n += int64(BasicTypeSize(BasicType(typeByte), idSize))
		if BasicType(typeByte) == TypeObject {
			if v := val.(uint64); v != 0 {
				staticFields = append(staticFields, FieldRef{Name: strs[nameID], Value: v})
			}
		}
	}

	instanceCount, err := r.ReadUint16()
	if err != nil {
		return 0, err
	}
	n += 2
	var decls []fieldDecl
	for i := 0; i < int(instanceCount); i++ {
		nameID, err := r.ReadID()
		if err != nil {
			return 0, err
		}
		n += int64(idSize)
		typeByte, err := r.ReadByte()
		if err != nil {
			return 0, err
		}
		n++
		decls = append(decls, fieldDecl{nameID: nameID, typ: BasicType(typeByte)})
	}
	classFieldDecls[classID] = decls

	s.classSuperByID[classID] = superID
	s.classObjects[classID] = &classObjectRecord{superID: superID, staticFields: staticFields}
	s.instanceScanOrder = append(s.instanceScanOrder, classID)

	return n, nil
}

func (s *Snapshot) parseInstanceDump(r *reader, strs map[uint64]string, classFieldDecls map[uint64][]fieldDecl) (int64, error) {
	idSize := r.IDSize()
	var n int64

	objectID, err := r.ReadID()
	if err != nil {
		return 0, err
	}
	n += int64(idSize)

	if _, err := r.ReadUint32(); err != nil {
		return 0, err
	}
	n += 4

	classID, err := r.ReadID()
	if err != nil {
		return 0, err
	}
	n += int64(idSize)

	dataSize, err := r.ReadUint32()
	if err != nil {
		return 0, err
	}
	n += 4

	data, err := r.ReadBytes(int(dataSize))
	if err != nil {
		return 0, err
	}
	n += int64(dataSize)

	fields := s.extractReferenceFields(classID, data, strs, classFieldDecls)
	s.instances[objectID] = &instanceRecord{classID: classID, fields: fields}
	s.instanceScanOrder = append(s.instanceScanOrder, objectID)

	return n, nil
}

// extractReferenceFields reads the object-typed fields out of raw instance
// data, superclass fields first (matching JVM instance layout), resolving
// field names from the string table.
func (s *Snapshot) extractReferenceFields(classID uint64, data []byte, strs map[uint64]string, classFieldDecls map[uint64][]fieldDecl) []FieldRef {
	idSize := s.idSize
	if idSize == 0 {
		idSize = 8
	}

	var chain [][]fieldDecl
	cur := classID
	seen := make(map[uint64]bool)
	for cur != 0 && !seen[cur] {
		seen[cur] = true
		chain = append([][]fieldDecl{classFieldDecls[cur]}, chain...)
		cur = s.classSuperByID[cur]
	}

	var fields []FieldRef
	offset := 0
	for _, decls := range chain {
		for _, d := range decls {
			sz := BasicTypeSize(d.typ, idSize)
			if offset+sz > len(data) {
				return fields
			}
			if d.typ == TypeObject {
				v := readBigEndianID(data[offset:offset+sz], idSize)
				if v != 0 {
					fields = append(fields, FieldRef{Name: strs[d.nameID], Value: v})
				}
			}
			offset += sz
		}
	}
	return fields
}

func readBigEndianID(b []byte, idSize int) uint64 {
	var v uint64
	for i := 0; i < idSize; i++ {
		v = v<<8 | uint64(b[i])
	}
	return v
}

func (s *Snapshot) parseObjectArrayDump(r *reader) (int64, error) {
	idSize := r.IDSize()
	var n int64

	arrayID, err := r.ReadID()
	if err != nil {
		return 0, err
	}
	n += int64(idSize)

	if _, err := r.ReadUint32(); err != nil {
		return 0, err
	}
	n += 4

	numElements, err := r.ReadUint32()
	if err != nil {
		return 0, err
	}
	n += 4

	classID, err := r.ReadID()
	if err != nil {
		return 0, err
	}
	n += int64(idSize)

	elemBytes := int64(numElements) * int64(idSize)
	data, err := r.ReadBytes(int(elemBytes))
	if err != nil {
		return 0, err
	}
	n += elemBytes

	var elements []Element
	for i := 0; i < int(numElements); i++ {
		off := i * idSize
		v := readBigEndianID(data[off:off+idSize], idSize)
		if v != 0 {
			elements = append(elements, Element{Index: i, Value: v})
		}
	}

	s.arrays[arrayID] = &arrayRecord{classID: classID, elements: elements}
	s.instanceScanOrder = append(s.instanceScanOrder, arrayID)

	return n, nil
}

func (s *Snapshot) parsePrimitiveArrayDump(r *reader) (int64, error) {
	idSize := r.IDSize()
	var n int64

	arrayID, err := r.ReadID()
	if err != nil {
		return 0, err
	}
	n += int64(idSize)

	if _, err := r.ReadUint32(); err != nil {
		return 0, err
	}
	n += 4

	numElements, err := r.ReadUint32()
	if err != nil {
		return 0, err
	}
	n += 4

	elemType, err := r.ReadByte()
	if err != nil {
		return 0, err
	}
	n++

	elemSize := BasicTypeSize(BasicType(elemType), idSize)
	dataBytes := int64(numElements) * int64(elemSize)
	if err := r.Skip(dataBytes); err != nil {
		return 0, err
	}
	n += dataBytes

	s.primitiveArrays[arrayID] = struct{}{}
	s.instanceScanOrder = append(s.instanceScanOrder, arrayID)

	return n, nil
}

// ReadValue reads one value of the given basic type, used for static fields.
func (r *reader) ReadValue(t BasicType) (interface{}, error) {
	switch t {
	case TypeBoolean, TypeByte:
		b, err := r.ReadByte()
		return uint64(b), err
	case TypeChar, TypeShort:
		v, err := r.ReadUint16()
		return uint64(v), err
	case TypeFloat, TypeInt:
		v, err := r.ReadUint32()
		return uint64(v), err
	case TypeDouble, TypeLong:
		return r.ReadUint64()
	case TypeObject:
		return r.ReadID()
	default:
		return nil, fmt.Errorf("unknown basic type: %d", t)
	}
}

func normalizeClassName(name string) string {
	name = strings.ReplaceAll(name, "/", ".")
	if strings.HasPrefix(name, "[") {
		return parseArrayTypeName(name)
	}
	return name
}

func parseArrayTypeName(name string) string {
	dims := 0
	for strings.HasPrefix(name, "[") {
		dims++
		name = name[1:]
	}
	var base string
	switch {
	case strings.HasPrefix(name, "L") && strings.HasSuffix(name, ";"):
		base = strings.ReplaceAll(name[1:len(name)-1], "/", ".")
	case name == "Z":
		base = "boolean"
	case name == "B":
		base = "byte"
	case name == "C":
		base = "char"
	case name == "S":
		base = "short"
	case name == "I":
		base = "int"
	case name == "J":
		base = "long"
	case name == "F":
		base = "float"
	case name == "D":
		base = "double"
	default:
		base = name
	}
	return base + strings.Repeat("[]", dims)
}

// Exists reports whether id names any object in the snapshot.
func (s *Snapshot) Exists(id uint64) bool {
	if _, ok := s.instances[id]; ok {
		return true
	}
	if _, ok := s.arrays[id]; ok {
		return true
	}
	if _, ok := s.classObjects[id]; ok {
		return true
	}
	if _, ok := s.primitiveArrays[id]; ok {
		return true
	}
	return false
}

// Resolve returns the tagged node for id.
func (s *Snapshot) Resolve(id uint64) (Node, bool) {
	if rec, ok := s.instances[id]; ok {
		return Node{ID: id, Kind: KindInstance, ClassName: s.classNameByID[rec.classID], Fields: rec.fields}, true
	}
	if rec, ok := s.arrays[id]; ok {
		return Node{ID: id, Kind: KindObjectArray, ClassName: s.classNameByID[rec.classID], ArrayClassName: s.classNameByID[rec.classID], Elements: rec.elements}, true
	}
	if rec, ok := s.classObjects[id]; ok {
		return Node{ID: id, Kind: KindClassObject, ClassName: rec.className, Fields: rec.staticFields}, true
	}
	if _, ok := s.primitiveArrays[id]; ok {
		return Node{ID: id, Kind: KindPrimitiveArray}, true
	}
	return Node{}, false
}

// GCRoots returns every recorded GC root, in dump order.
func (s *Snapshot) GCRoots() []GCRoot {
	return s.gcRoots
}

// IterateInstances returns the ids of every INSTANCE_DUMP object, in the
// order they appeared in the heap dump (scan order).
func (s *Snapshot) IterateInstances() []uint64 {
	out := make([]uint64, 0, len(s.instances))
	for _, id := range s.instanceScanOrder {
		if _, ok := s.instances[id]; ok {
			out = append(out, id)
		}
	}
	return out
}

// Stats returns the object-population counts for the report header.
func (s *Snapshot) Stats() Stats {
	return s.stats
}

// SuperclassName returns the declared superclass name of className, if
// className is a known class and has one. classIDByName gives this O(1)
// lookup; it is hit once per superclass-chain hop for every instance the
// reverse-index BFS dequeues, so a linear scan here would make index
// construction quadratic in the class count.
func (s *Snapshot) SuperclassName(className string) (string, bool) {
	classID, ok := s.classIDByName[className]
	if !ok {
		return "", false
	}
	superID := s.classSuperByID[classID]
	if superID == 0 {
		return "", false
	}
	superName, ok := s.classNameByID[superID]
	return superName, ok
}
