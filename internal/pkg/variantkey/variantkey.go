// Package variantkey implementa o mapeamento determinístico e bidirecional
// entre (sku, atributos de variante) e a chave única usada para indexação.
//
// Formato: o sku sozinho quando não há atributos, ou "sku#k1:v1|k2:v2" com as
// chaves em ordem lexicográfica. Dois mapas com os mesmos pares chave/valor
// produzem sempre a mesma chave, independente da ordem de inserção.
package variantkey

import (
	"sort"
	"strings"
)

// Reserved são os caracteres reservados do formato da chave. Valores de
// atributo contendo qualquer um deles quebram o round-trip encode/decode; a
// camada de validação do domínio os rejeita antes de chegar aqui.
const Reserved = "#|:"

const (
	skuSeparator   = "#"
	pairSeparator  = "|"
	valueSeparator = ":"
)

// Encode produz a chave de variante de um SKU com seus atributos.
func Encode(sku string, attrs map[string]string) string {
	if len(attrs) == 0 {
		return sku
	}

	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, k+valueSeparator+attrs[k])
	}

	return sku + skuSeparator + strings.Join(pairs, pairSeparator)
}

// Decode recupera o par (sku, atributos) de uma chave bem formada.
// Retorna ok=false quando a chave é inválida: segmento vazio, segmento sem
// exatamente um ':', chave ou valor vazios, ou chave de atributo duplicada.
func Decode(key string) (sku string, attrs map[string]string, ok bool) {
	sku, rest, found := strings.Cut(key, skuSeparator)
	if sku == "" {
		return "", nil, false
	}
	if !found {
		return sku, map[string]string{}, true
	}
	if rest == "" {
		return "", nil, false
	}

	attrs = make(map[string]string)
	for _, segment := range strings.Split(rest, pairSeparator) {
		if segment == "" {
			return "", nil, false
		}
		k, v, hasValue := strings.Cut(segment, valueSeparator)
		if !hasValue || k == "" || v == "" || strings.Contains(v, valueSeparator) {
			return "", nil, false
		}
		if _, dup := attrs[k]; dup {
			return "", nil, false
		}
		attrs[k] = v
	}

	return sku, attrs, true
}
