package compiler

import "fmt"

// Opcode identifies one instruction in a Program. The full set mirrors the
// language's bytecode exactly: stack-frame ops, data ops, name-resolution
// ops, control ops, call ops, and arithmetic/comparison/misc ops.
type Opcode uint8

//nolint:revive
const (
	NOP Opcode = iota

	// stack frame
	MARK     // - MARK -                    [pushes stack.len onto marks]
	LIMIT    // - LIMIT(n) -                 [trims/pads stack to marks.pop()+n, or all if n<0]
	LOOP     // - LOOP(end) -                [pushes a loop anchor: (continue ip, end, marks.len, owned marks)]
	UNLOOP   // - UNLOOP -                   [pops the loop anchor]
	DROP     // x DROP -
	DROP_ALL // x... DROP_ALL -              [drops everything above the last mark]

	// data
	LIT       // - LIT(v) v
	NIL       // - NIL nil
	TRUE      // - TRUE true
	FALSE     // - FALSE false
	STRING    // parts... STRING(n) s        [concatenates the string forms of n stack entries]
	ARRAY     // elems... ARRAY(n) vec
	TABLE     // k v... TABLE(n) map         [builds a fresh map from n key/value pairs]
	GLOBAL    // - GLOBAL map                [pushes the global scope]
	LOCAL     // - LOCAL map                 [pushes the reading scope]
	LITSTACK  // - LITSTACK stack            [diagnostic: push the current stack as a vec]
	LITSCOPE  // - LITSCOPE map              [turn the writing scope into a map value]
	SCOPE     // - SCOPE -                   [pushes a fresh scope]
	SMUDGE    // - SMUDGE -                  [marks the top scope smudged]
	UNSCOPE   // - UNSCOPE -                 [pops the top scope]
	SELF      // - SELF self
	SELF_PUSH // x SELF_PUSH -               [pushes x onto the self-stack]
	SELF_DROP // - SELF_DROP -               [pops the self-stack]
	SHUNT     // x SHUNT -                   [moves x from stack to other]
	SHIFT     // - SHIFT x                   [moves top of other back to stack]

	// names
	ASSIGN     // - ASSIGN(i) -              [never emitted; the VM rejects it as a fatal error]
	ASSIGN_LIT // - ASSIGN_LIT(name, i) -    [binds the value at slot i above the mark to name in the writing scope, without popping]
	FIND       // name FIND x                [reading scope -> global -> core]
	FIND_LIT   // - FIND_LIT(name) x
	GET        // m k GET x                  [m[k], following meta/super]
	GET_LIT    // m GET_LIT(key) x
	SET        // m k v SET -
	INHERIT    // child parent INHERIT -     [child.meta = parent]

	// control
	TEST    // x TEST x bool                 [pushes truthiness without consuming x]
	JMP     // - JMP(t) -
	JFALSE  // x JFALSE(t) x                 [jumps if x is falsey, x stays]
	JTRUE   // x JTRUE(t) x                  [jumps if x is truthy, x stays]
	FOR     // iter n FOR(name, end) iter n' [binds name(s), jumps to end when exhausted]
	KEYS    // m KEYS vec
	VALUES  // m VALUES vec

	// calls
	CALL     // entry CALL -                 [pushes (loops.len, marks.len, ip), opens scope, jumps]
	CALL_LIT // - CALL_LIT(name) -           [resolves name, then CALL]
	RETURN   // - RETURN -                   [closes scope, restores ip, checks frame discipline]
	REPLY    // - REPLY(n) -                 [discards the n parameter slots just above the mark, keeping the results]
	BREAK    // - BREAK -
	CONTINUE // - CONTINUE -
	COROUTINE // entry COROUTINE cor
	RESUME    // cor args... RESUME results...
	YIELD     // args... YIELD results...

	// arithmetic / comparison / misc
	ADD      // x y ADD z
	ADD_LIT  // x ADD_LIT(v) z
	NEG      // x NEG -x
	SUB      // x y SUB z
	MUL      // x y MUL z
	DIV      // x y DIV z
	MOD      // x y MOD z
	EQ       // x y EQ bool
	NE       // x y NE bool
	LT       // x y LT bool
	LT_LIT   // x LT_LIT(v) bool
	LTE      // x y LTE bool
	GT       // x y GT bool
	GTE      // x y GTE bool
	NOT      // x NOT bool
	CONCAT   // x y CONCAT s
	COUNT    // x COUNT n
	MATCH    // s pat MATCH results...
	STATUS   // - STATUS map
	PRINT    // vals... PRINT -

	maxOpcode
)

var opcodeNames = [...]string{
	NOP: "nop",

	MARK: "mark", LIMIT: "limit", LOOP: "loop", UNLOOP: "unloop",
	DROP: "drop", DROP_ALL: "drop_all",

	LIT: "lit", NIL: "nil", TRUE: "true", FALSE: "false", STRING: "string",
	ARRAY: "array", TABLE: "table", GLOBAL: "global", LOCAL: "local",
	LITSTACK: "litstack", LITSCOPE: "litscope", SCOPE: "scope", SMUDGE: "smudge",
	UNSCOPE: "unscope", SELF: "self", SELF_PUSH: "self_push", SELF_DROP: "self_drop",
	SHUNT: "shunt", SHIFT: "shift",

	ASSIGN: "assign", ASSIGN_LIT: "assign_lit", FIND: "find", FIND_LIT: "find_lit",
	GET: "get", GET_LIT: "get_lit", SET: "set", INHERIT: "inherit",

	TEST: "test", JMP: "jmp", JFALSE: "jfalse", JTRUE: "jtrue", FOR: "for",
	KEYS: "keys", VALUES: "values",

	CALL: "call", CALL_LIT: "call_lit", RETURN: "return", REPLY: "reply",
	BREAK: "break", CONTINUE: "continue", COROUTINE: "coroutine",
	RESUME: "resume", YIELD: "yield",

	ADD: "add", ADD_LIT: "add_lit", NEG: "neg", SUB: "sub", MUL: "mul",
	DIV: "div", MOD: "mod", EQ: "eq", NE: "ne", LT: "lt", LT_LIT: "lt_lit",
	LTE: "lte", GT: "gt", GTE: "gte", NOT: "not", CONCAT: "concat",
	COUNT: "count", MATCH: "match", STATUS: "status", PRINT: "print",
}

func (op Opcode) String() string {
	if int(op) < len(opcodeNames) && opcodeNames[op] != "" {
		return opcodeNames[op]
	}
	return fmt.Sprintf("opcode(%d)", uint8(op))
}
