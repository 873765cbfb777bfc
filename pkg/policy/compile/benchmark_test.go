package compile

import "testing"

func BenchmarkCompile(b *testing.B) {
	exprs := []interface{}{
		[]interface{}{">", "doc.x", 3},
		[]interface{}{">", "doc.x", 5},
		[]interface{}{"<", "doc.x", 10},
		[]interface{}{"=", "doc.role", "admin"},
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := Compile(exprs, nil); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkCompiledCheckEvaluate(b *testing.B) {
	check, err := Compile([]interface{}{
		[]interface{}{">", "doc.x", 5},
		[]interface{}{"<", "doc.x", 10},
		[]interface{}{"=", "doc.role", "admin"},
	}, nil)
	if err != nil {
		b.Fatalf("Compile() error = %v", err)
	}
	doc := map[string]interface{}{"x": 7, "role": "admin"}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := check.Evaluate(doc); err != nil {
			b.Fatal(err)
		}
	}
}
