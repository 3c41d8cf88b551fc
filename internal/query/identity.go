package query

import "github.com/tile-microservice/internal/domain"

// Identity - выражение идентификатора строки: md5 от JSON всей строки.
// Считается в том же запросе, что и сама строка, поэтому одинаковые строки
// получают одинаковый _qid в тайлах, выборках по прямоугольнику и по id.
func Identity(alias string) string {
	return "md5(row_to_json(" + alias + ".*)::TEXT)"
}

// identityColumn - выражение идентификатора с алиасом _qid
func identityColumn() string {
	return Identity(InnerAlias) + " AS " + domain.IdentityColumn
}
