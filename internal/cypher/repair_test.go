package cypher

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestRepair_DropsMatchAfterCreate(t *testing.T) {
	in := strings.Join([]string{"CREATE (a:Note)", "MATCH (b:Note) RETURN b"}, "\n")
	rep := RepairWithReport(in)

	if rep.Text != "CREATE (a:Note)" {
		t.Errorf("Repair() = %q, want %q", rep.Text, "CREATE (a:Note)")
	}
	if diff := cmp.Diff([]string{"MATCH (b:Note) RETURN b"}, rep.Dropped); diff != "" {
		t.Errorf("Dropped mismatch (-want +got):\n%s", diff)
	}
}

func TestRepair_KeepsMatchBeforeCreate(t *testing.T) {
	in := "MATCH (p:Person {name: \"Ada\"})\nCREATE (n:Note {title: \"Engines\"})\nCREATE (p)-[:WROTE]->(n)\nMATCH (x) RETURN x"
	got := strings.Split(Repair(in), "\n")
	want := []string{
		"MATCH (p:Person {name: \"Ada\"})",
		"CREATE (n:Note {title: \"Engines\"})",
		"CREATE (p)-[:WROTE]->(n)",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Repair() mismatch (-want +got):\n%s", diff)
	}
}

func TestRepair_MergeNeverDropped(t *testing.T) {
	in := "CREATE (a:Note)\nMERGE (t:Tag {name: \"x\"})\nMATCH (z) DELETE z"
	want := "CREATE (a:Note)\nMERGE (t:Tag {name: \"x\"})"
	if got := Repair(in); got != want {
		t.Errorf("Repair() = %q, want %q", got, want)
	}
}

func TestRepair_DatetimeLiteral(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{`SET n.created = DATETIME("2024-01-01")`, `SET n.created = "2024-01-01"`},
		{`SET n.created = datetime('2024-01-01T10:00:00')`, `SET n.created = "2024-01-01T10:00:00"`},
		{`CREATE (e:Event {at: DateTime( "2023-05-05" )})`, `CREATE (e:Event {at: "2023-05-05"})`},
		{`SET n.at = localdatetime("2024-01-01")`, `SET n.at = localdatetime("2024-01-01")`},
	}
	for _, tc := range tests {
		if got := Repair(tc.in); got != tc.want {
			t.Errorf("Repair(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestRepair_DatetimeRecordedAsRewrite(t *testing.T) {
	rep := RepairWithReport(`SET n.created = DATETIME("2024-01-01")`)
	if diff := cmp.Diff([]string{`SET n.created = DATETIME("2024-01-01")`}, rep.Rewritten); diff != "" {
		t.Errorf("Rewritten mismatch (-want +got):\n%s", diff)
	}
}

func TestRepair_DropsBlankAndCommentLines(t *testing.T) {
	in := "\n// nodes\n   CREATE (a:Note)   \n\n  // edges\nON CREATE SET a.x = 1\n"
	want := "CREATE (a:Note)\nON CREATE SET a.x = 1"
	if got := Repair(in); got != want {
		t.Errorf("Repair() = %q, want %q", got, want)
	}
}

func TestRepair_InlineNodeDetectedNotRewritten(t *testing.T) {
	line := `(a)-[:MENTIONS]->(t:Topic {name: "Go"})`
	rep := RepairWithReport(line)
	if rep.Text != line {
		t.Errorf("Repair() = %q, want line unchanged", rep.Text)
	}
	if diff := cmp.Diff([]string{line}, rep.InlineNodes); diff != "" {
		t.Errorf("InlineNodes mismatch (-want +got):\n%s", diff)
	}
}

func TestRepair_OtherLinesKept(t *testing.T) {
	in := "CREATE (a:Note)\nWITH a\nOPTIONAL MATCH (b) RETURN b\nRETURN a"
	if got := Repair(in); got != in {
		t.Errorf("Repair() = %q, want unchanged %q", got, in)
	}
}

func TestRepair_Idempotent(t *testing.T) {
	inputs := []string{
		"CREATE (a:Note)\nMATCH (b:Note) RETURN b",
		"MATCH (p:Person)\nCREATE (n:Note {at: datetime(\"2024-02-02\")})\nMATCH (q) SET q.x = 1\nSET n.y = DATETIME('2020-01-01')",
		"// only comments\n\n",
		"(a)-[:REL]->(b:Thing {k: 1})\nMERGE (c)\nON CREATE SET c.v = 2",
		"no cypher here at all",
	}
	for _, in := range inputs {
		once := Repair(in)
		twice := Repair(once)
		if once != twice {
			t.Errorf("Repair not idempotent for %q:\n once: %q\ntwice: %q", in, once, twice)
		}
	}
}

func TestRepair_EmptyInput(t *testing.T) {
	if got := Repair(""); got != "" {
		t.Errorf("Repair(\"\") = %q, want empty", got)
	}
}
