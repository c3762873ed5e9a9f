package sql

import (
	"testing"

	"github.com/syssam/rowset/expr"
	"github.com/syssam/rowset/schema"
	"github.com/syssam/rowset/schema/field"
)

func benchModels(b *testing.B) (users, posts *schema.Model) {
	b.Helper()
	var err error
	users, err = schema.Define("User", schema.TableName("users")).
		Column("id", field.Int64, schema.Identity()).
		Column("name", field.String(100)).
		Column("email", field.String(200).Null()).
		Column("active", field.Bool).
		Column("created_at", field.Time).
		PrimaryKey("id").
		Build()
	if err != nil {
		b.Fatal(err)
	}
	posts, err = schema.Define("Post", schema.TableName("posts")).
		Column("id", field.Int64, schema.Identity()).
		Column("user_id", field.Int64).
		Column("title", field.String(200)).
		PrimaryKey("id").
		Build()
	if err != nil {
		b.Fatal(err)
	}
	return users, posts
}

var benchDialects = []*Dialect{SQLServer, MySQL, Postgres, SQLite}

func benchCompile(b *testing.B, stmt Statement) {
	for _, d := range benchDialects {
		b.Run(d.Name(), func(b *testing.B) {
			b.ReportAllocs()
			for b.Loop() {
				if _, err := Compile(stmt, d); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

func BenchmarkCompileInsert(b *testing.B) {
	users, _ := benchModels(b)
	benchCompile(b, Insert(users).
		Columns(users.Column("name"), users.Column("email"), users.Column("active")).
		Values(expr.NewParam("name", field.String(100), "Ariel"), expr.Null(field.TypeString), expr.Value(true)))
}

func BenchmarkCompileSelectSimple(b *testing.B) {
	users, _ := benchModels(b)
	benchCompile(b, Select().From(Table(users)))
}

func BenchmarkCompileSelectJoin(b *testing.B) {
	users, posts := benchModels(b)
	benchCompile(b, Select(users.Column("id"), users.Column("name"), posts.Column("title")).
		From(Table(users).As("u")).
		InnerJoin(Table(posts).As("p"), users.Column("id"), posts.Column("user_id")).
		Where(expr.EQ(users.Column("active"), expr.Value(true))).
		OrderBy(Asc(users.Column("created_at"))).
		Limit(10))
}

func BenchmarkCompileSelectAggregate(b *testing.B) {
	users, posts := benchModels(b)
	benchCompile(b, Select(users.Column("name"), expr.Call(expr.Count, posts.Column("id"))).
		From(Table(users)).
		LeftJoin(Table(posts), users.Column("id"), posts.Column("user_id")).
		Where(expr.And(
			expr.IsNotNull(users.Column("email")),
			expr.GT(users.Column("created_at"), expr.NewParam("since", field.Time, nil)),
		)).
		Having(expr.GT(expr.Call(expr.Count, posts.Column("id")), expr.Value(int64(5)))))
}

func BenchmarkCompileUpdate(b *testing.B) {
	users, _ := benchModels(b)
	benchCompile(b, Update(users).
		Set(users.Column("name"), expr.NewParam("name", field.String(100), "a8m")).
		Set(users.Column("active"), expr.Value(false)).
		Where(expr.EQ(users.Column("id"), expr.NewParam("id", field.Int64, 1))))
}

func BenchmarkCompileDelete(b *testing.B) {
	users, _ := benchModels(b)
	benchCompile(b, Delete(users).Where(expr.Or(
		expr.EQ(users.Column("active"), expr.Value(false)),
		expr.IsNull(users.Column("email")),
	)))
}

func BenchmarkStatementCache(b *testing.B) {
	users, _ := benchModels(b)
	stmt := Select().From(Table(users)).Where(expr.EQ(users.Column("id"), expr.NewParam("id", field.Int64, 1)))
	cache := NewStatementCache()
	b.ReportAllocs()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			if _, err := cache.Compile(stmt, Postgres); err != nil {
				b.Error(err)
				return
			}
		}
	})
}
