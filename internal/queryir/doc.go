// Package queryir parses geograph's filter and relation-path language into
// an abstract syntax tree.
//
// The language is the only caller-authored text that reaches a compiled
// statement, so it is parsed into structured nodes instead of being
// rewritten with regular expressions. Backend compilers walk the tree and
// bind every literal value as a parameter.
//
// ARCHITECTURE:
//
//	[filter / relation text] → [queryir AST] → [Cypher backend]
//
// GRAMMAR:
//
//	propertyFilter := IDENT (cmpOp value | IS NULL | IS NOT NULL)
//	cmpOp          := = | <> | > | < | <= | >=
//	value          := quotedString | bareToken
//	whereExpr      := '[' propertyFilter (BOOL propertyFilter)* ']'
//	paginationExpr := '{' ('skip' '=' INT)? ('limit' '=' INT)? '}'
//	filter         := whereExpr? paginationExpr?
//	relationPath   := hop ('.' hop)*
//	hop            := '?'? TYPE ('-' TYPE)* ('@' VAR)? whereExpr? paginationExpr?
//
// BOOL is AND or OR, applied flat and left to right. Keywords are case
// insensitive. Quoted strings use double or single quotes with backslash
// escapes. Bare tokens are typed: integer, float, true, false, null, and
// anything else is a string. "x = null" and "x <> null" are rewritten to
// IS NULL and IS NOT NULL.
//
// Pagination uses braces, hops are separated by '.', alternative edge types
// by '-'. Other spellings (parentheses for pagination, arrows between hops,
// '|' between types) are rejected.
//
// SEALED INTERFACES:
//
// Predicate is sealed using the marker method pattern, so backends can
// switch exhaustively over Comparison and NullCheck.
//
// STRICT AND LENIENT ENTRY POINTS:
//
// ParseFilter and ParseRelationPath reject malformed input with an
// *ir.ValidationError. EnumerateGroups, GetGroup and Groups never fail;
// they report which constructs appear in a text and are used for
// diagnostics.
package queryir
