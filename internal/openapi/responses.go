package openapi

// ResponsePairs opens a responses object for editing.
func ResponsePairs(responses *Map) Pairs {
	return PairsOf(responses)
}

// AddResponse appends a "200 OK" entry. It does not check whether "200" is
// already present: the duplicate lives on until Commit, where the later entry
// wins. Callers that want to refuse duplicates check Pairs.Duplicates or
// Pairs.Index first.
func AddResponse(rows Pairs) Pairs {
	return rows.Append("200", MapOf("description", "OK"))
}

// EditResponse sets the keys of patch on the response for code. With
// duplicate codes the last entry, the one Commit keeps, is edited.
func EditResponse(rows Pairs, code string, patch *Map) Pairs {
	i := rows.Index(code)
	if i < 0 {
		return rows
	}
	cur, _ := rows[i].Value.(*Map)
	return rows.SetAt(i, cur.Merge(patch))
}

// RenameResponseCode changes the status code of the entry for oldCode.
func RenameResponseCode(rows Pairs, oldCode, newCode string) Pairs {
	return rows.RenameAt(rows.Index(oldCode), newCode)
}

// DeleteResponse removes the entry for code.
func DeleteResponse(rows Pairs, code string) Pairs {
	return rows.RemoveAt(rows.Index(code))
}

// CommitResponses writes rows back as the responses of the operation at
// (path, method).
func CommitResponses(doc *Map, path, method string, rows Pairs) *Map {
	return SetOperation(doc, path, method, func(op *Map) *Map {
		return op.With("responses", rows.Commit())
	})
}
