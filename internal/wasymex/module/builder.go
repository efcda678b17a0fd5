package module

import "github.com/wasymex/wasymex-go/internal/wasymex/value"

// Builder assembles a Module programmatically: the path tests use instead
// of decoding a binary container. Block ids and local ids are
// assigned as they're requested, mirroring how a real decoder would hand
// out walrus-style opaque ids while building the tree.
type Builder struct {
	m         *Module
	nextBlock BlockID
}

// NewBuilder starts an empty module.
func NewBuilder() *Builder {
	return &Builder{
		m: &Module{
			funcByID:   make(map[FunctionID]*Function),
			funcByName: make(map[string]*Function),
		},
	}
}

// Memory declares one linear memory with the given initial page count.
func (b *Builder) Memory(initialPages uint32) {
	b.m.Memories = append(b.m.Memories, Memory{Initial: initialPages})
}

// FuncBuilder assembles one local function's body.
type FuncBuilder struct {
	b      *Builder
	fn     *Function
	blocks map[BlockID]*Block
	nextAt map[BlockID]uint32
}

// Func starts a new local function with the given parameter types, in
// order. Use Local to declare any additional locals referenced by the body.
func (b *Builder) Func(name string, params ...ValType) *FuncBuilder {
	id := FunctionID(len(b.m.Funcs))
	fn := &Function{ID: id, Name: name, Kind: KindLocal}
	entry := b.nextBlockID()

	fb := &FuncBuilder{
		b:      b,
		fn:     fn,
		blocks: map[BlockID]*Block{entry: {ID: entry}},
		nextAt: map[BlockID]uint32{},
	}
	fn.Body = &Body{Entry: entry, Locals: make(map[LocalID]ValType), blocks: fb.blocks}

	for i, t := range params {
		local := LocalID(i)
		fn.Params = append(fn.Params, local)
		fn.Body.Locals[local] = t
	}

	b.m.Funcs = append(b.m.Funcs, fn)
	b.m.funcByID[id] = fn
	if name != "" {
		b.m.funcByName[name] = fn
	}
	return fb
}

// ImportFunc registers a function with no body (Kind Import), for Call
// targets the engine should never need to step into during these tests.
func (b *Builder) ImportFunc(name string) FunctionID {
	id := FunctionID(len(b.m.Funcs))
	fn := &Function{ID: id, Name: name, Kind: KindImport}
	b.m.Funcs = append(b.m.Funcs, fn)
	b.m.funcByID[id] = fn
	if name != "" {
		b.m.funcByName[name] = fn
	}
	return id
}

func (b *Builder) nextBlockID() BlockID {
	id := b.nextBlock
	b.nextBlock++
	return id
}

// Build finalizes the module.
func (b *Builder) Build() *Module { return b.m }

// Local declares an additional local (beyond the declared parameters) with
// the given type, returning its id.
func (f *FuncBuilder) Local(t ValType) LocalID {
	id := LocalID(len(f.fn.Body.Locals))
	f.fn.Body.Locals[id] = t
	return id
}

// FunctionID returns the id assigned to this function.
func (f *FuncBuilder) FunctionID() FunctionID { return f.fn.ID }

// EntryBlock returns a cursor positioned at the function's entry block.
func (f *FuncBuilder) EntryBlock() *BlockCursor {
	return &BlockCursor{fb: f, id: f.fn.Body.Entry}
}

// BlockCursor appends instructions to one block in declaration order.
type BlockCursor struct {
	fb *FuncBuilder
	id BlockID
}

func (c *BlockCursor) emit(op Op) Loc {
	block := c.fb.blocks[c.id]
	loc := Loc{Block: c.id, At: c.fb.nextAt[c.id]}
	c.fb.nextAt[c.id]++
	block.Instrs = append(block.Instrs, Instr{Loc: loc, Op: op})
	return loc
}

func (c *BlockCursor) Drop()                    { c.emit(OpDrop{}) }
func (c *BlockCursor) Const(v int32)             { c.emit(OpConst{Value: v}) }
func (c *BlockCursor) LocalGet(id LocalID)        { c.emit(OpLocalGet{Local: id}) }
func (c *BlockCursor) LocalSet(id LocalID)        { c.emit(OpLocalSet{Local: id}) }
func (c *BlockCursor) LocalTee(id LocalID)        { c.emit(OpLocalTee{Local: id}) }
func (c *BlockCursor) GlobalGet(idx uint32)       { c.emit(OpGlobalGet{Global: idx}) }
func (c *BlockCursor) GlobalSet(idx uint32)       { c.emit(OpGlobalSet{Global: idx}) }
func (c *BlockCursor) Select()                    { c.emit(OpSelect{}) }
func (c *BlockCursor) Call(target FunctionID)     { c.emit(OpCall{Func: target}) }
func (c *BlockCursor) Return()                    { c.emit(OpReturn{}) }
func (c *BlockCursor) MemorySize()                 { c.emit(OpMemorySize{}) }
func (c *BlockCursor) MemoryGrow()                 { c.emit(OpMemoryGrow{}) }

func (c *BlockCursor) Unop(op value.UnOp)   { c.emit(OpUnop{Op: op}) }
func (c *BlockCursor) Binop(op value.BinOp) { c.emit(OpBinop{Op: op}) }

func (c *BlockCursor) Load(offset int32, accessBits, resultBits uint32, zeroExtend bool) {
	c.emit(OpLoad{Offset: offset, AccessBits: accessBits, ResultBits: resultBits, ZeroExtend: zeroExtend})
}

func (c *BlockCursor) Store(offset int32, storeBits uint32) {
	c.emit(OpStore{Offset: offset, StoreBits: storeBits})
}

// Block appends a nested `block` and returns a cursor for its body; the
// caller must fully populate it before continuing to emit into c.
func (c *BlockCursor) Block() *BlockCursor {
	id := c.fb.b.nextBlockID()
	c.fb.blocks[id] = &Block{ID: id}
	c.emit(OpBlock{Seq: id})
	return &BlockCursor{fb: c.fb, id: id}
}

// Loop appends a nested `loop` and returns a cursor for its body.
func (c *BlockCursor) Loop() *BlockCursor {
	id := c.fb.b.nextBlockID()
	c.fb.blocks[id] = &Block{ID: id}
	c.emit(OpLoop{Seq: id})
	return &BlockCursor{fb: c.fb, id: id}
}

// IfElse appends an `if`/`else` and returns cursors for each arm.
func (c *BlockCursor) IfElse() (cons, alt *BlockCursor) {
	consID := c.fb.b.nextBlockID()
	altID := c.fb.b.nextBlockID()
	c.fb.blocks[consID] = &Block{ID: consID}
	c.fb.blocks[altID] = &Block{ID: altID}
	c.emit(OpIfElse{Consequent: consID, Alternative: altID})
	return &BlockCursor{fb: c.fb, id: consID}, &BlockCursor{fb: c.fb, id: altID}
}

// Br appends an unconditional branch to target (an id returned by Block()
// or Loop() on some enclosing cursor).
func (c *BlockCursor) Br(target *BlockCursor) { c.emit(OpBr{Target: target.id}) }

// BrIf appends a conditional branch to target.
func (c *BlockCursor) BrIf(target *BlockCursor) { c.emit(OpBrIf{Target: target.id}) }
