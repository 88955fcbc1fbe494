// encode.go
package processor

import (
	"sort"
)

// 降维映射迭代上限, 正常的映射链远小于该值
const maxReducePasses = 16

// TranslateCategory 将源语言类别翻译为英文
// 无翻译条目时保留原标签, 空标签原样传递
func TranslateCategory(category string, translation map[string]string) string {
	if category == "" {
		return ""
	}
	if english, ok := translation[category]; ok && english != "" {
		return english
	}
	return category
}

// ReduceCategory 应用类别降维映射直到不动点
// 映射可能是多级的(标签映射到的标签本身又是映射键),
// 因此反复应用直到结果不再变化, 并设迭代上限防御映射中的环
func ReduceCategory(label string, reduce map[string]string) string {
	for i := 0; i < maxReducePasses; i++ {
		next, ok := reduce[label]
		if !ok || next == label {
			return label
		}
		label = next
	}
	return label
}

// Vocabulary 收集本次运行观察到的非空取值, 升序排列
// 输出表的指示列集合完全由本次数据决定, 跨运行的列集合可能不同
func Vocabulary(values []string) []string {
	seen := make(map[string]bool)
	var vocab []string
	for _, v := range values {
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		vocab = append(vocab, v)
	}
	sort.Strings(vocab)
	return vocab
}

// OneHot 将取值列展开为0/1指示列, 列集合为vocab
// 空值(未定义)不属于任何指示列, 整行为0
func OneHot(values []string, vocab []string) map[string][]int {
	indicators := make(map[string][]int, len(vocab))
	for _, label := range vocab {
		indicators[label] = make([]int, len(values))
	}
	for i, v := range values {
		if column, ok := indicators[v]; ok {
			column[i] = 1
		}
	}
	return indicators
}
