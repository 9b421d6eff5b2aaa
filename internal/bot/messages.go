package bot

import (
	"errors"
	"fmt"
	"strings"

	"estate-advisor/internal/analysis"
	"estate-advisor/internal/listing"
	"estate-advisor/internal/report"
)

const (
	msgChooseAction  = "Выберите действие:"
	msgPromptAnalyze = "Введите данные объекта в формате: Локация|Площадь|Цена|Тип объекта"
	msgPromptCompare = "Введите минимум 2 объекта, каждый с новой строки:\nЛокация|Площадь|Цена|Тип"
	msgNeedStart     = "Отправьте /start и выберите действие, либо введите объект в формате: Локация|Площадь|Цена|Тип объекта"

	msgErrOneObject  = "Ошибка: введите один объект в формате: Локация|Площадь|Цена|Тип объекта"
	msgErrNeedTwo    = "Ошибка: введите минимум 2 объекта, каждый с новой строки."
	msgErrStorage    = "Не удалось сохранить результат анализа. Попробуйте еще раз."
	msgErrReport     = "Не удалось сформировать PDF-отчет."
	msgErrUnexpected = "Произошла ошибка. Попробуйте еще раз."
)

func formatErrorMessage(err error) string {
	var pe *listing.ParseError
	if !errors.As(err, &pe) {
		return msgErrUnexpected
	}
	switch pe.Reason {
	case listing.ReasonInvalidArea:
		return fmt.Sprintf("Ошибка в строке %d: площадь должна быть числом.", pe.Line+1)
	case listing.ReasonInvalidPrice:
		return fmt.Sprintf("Ошибка в строке %d: цена должна быть целым числом.", pe.Line+1)
	default:
		return fmt.Sprintf("Неверный формат в строке %d. Используйте: Локация|Площадь|Цена|Тип объекта", pe.Line+1)
	}
}

func analysisReplyText(res analysis.Result) string {
	return fmt.Sprintf("📊 *Аналитический отчет*:\n%s\n\n💰 *Оценка инвестиционной привлекательности*: %d/100\nРекомендация: %s",
		res.Narrative, res.Grade, recommendationLine(res.Grade))
}

func comparisonReplyText(items []report.Item) string {
	var b strings.Builder
	b.WriteString("📊 *Сравнительный анализ объектов*:\n")
	for i, item := range items {
		fmt.Fprintf(&b, "\n🏡 *Объект %d* (%s):\n%s\n💰 Оценка: %d/100\n",
			i+1, item.Record.Location, item.Narrative, item.Grade)
	}
	return b.String()
}

func recommendationLine(grade int) string {
	if grade >= report.InvestThreshold {
		return "✅ Инвестировать"
	}
	return "❌ Рассмотреть другие варианты"
}
