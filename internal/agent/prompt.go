package agent

import (
	"fmt"
	"strings"

	"github.com/feelps04/html-css-tutor-virtual/internal/curriculum"
)

const persona = "Você é um Tutor Virtual de Desenvolvimento Web, focado em HTML e CSS. Seu objetivo é ensinar HTML e CSS. "

const rules = "Seja sempre amigável, claro e direto. " +
	"Responda a saudações de forma apropriada. " +
	"Se a pergunta for sobre o tópico atual ou HTML/CSS em geral, forneça a melhor explicação possível e, se apropriado, um pequeno exemplo de código HTML ou CSS formatado em Markdown. " +
	"Se a pergunta não for sobre HTML/CSS ou desenvolvimento web, direcione o usuário de volta ao tópico de forma educada. " +
	"Quando um exercício é solicitado (palavra 'exercício' ou 'desafio') ou sugerido, gere um pequeno problema de desenvolvimento web RELEVANTE AO TÓPICO ATUAL para o usuário resolver. " +
	"Quando perguntado 'quem é você' ou sobre sua identidade, responda que você é um tutor virtual baseado em um modelo de linguagem e que está aqui para ajudar com HTML e CSS."

var modeGuidance = map[Mode]string{
	ModeBeginner: "Use linguagem simples, evite jargões e explique cada termo novo com analogias do dia a dia. " +
		"Avance em passos pequenos e termine sempre com um pequeno exercício prático para fixar o conteúdo. ",
	ModeIntermediate: "Aprofunde as explicações com boas práticas, organização de código e acessibilidade. " +
		"Traga desafios do mundo real e mostre como aplicar o tópico em projetos. ",
	ModeAdvanced: "Seja tecnicamente profundo: discuta desempenho, especificidade, compatibilidade entre navegadores e casos de borda. " +
		"Proponha problemas complexos e compare abordagens alternativas. ",
}

// BuildInstruction returns the system instruction for a mode and topic.
// next is the topic that follows topic, or nil at the end of the track.
// The output depends only on its arguments.
func BuildInstruction(mode Mode, topic curriculum.Topic, next *curriculum.Topic) string {
	var b strings.Builder
	b.WriteString(persona)
	fmt.Fprintf(&b, "Sua abordagem deve ser para um nível '%s'. ", mode)
	b.WriteString(modeGuidance[mode])
	fmt.Fprintf(&b, "Atualmente, o foco é no tópico '%s: %s'. ", topic.Name, topic.Description)
	b.WriteString(rules)

	if next != nil {
		fmt.Fprintf(&b, " Ao final de cada resposta, sugira o próximo passo ou um tópico relacionado. O próximo tópico sugerido após '%s' é '%s'.",
			topic.Name, next.Name)
	} else {
		fmt.Fprintf(&b, " Você concluiu a trilha de tópicos. Agora podemos fazer um '%s'.", topic.Name)
	}
	return b.String()
}

const fallbackTopicName = "este tópico"

// SuggestedQuestions returns starter questions for the chat box.
func SuggestedQuestions(mode Mode, topicName string) []string {
	if topicName == "" {
		topicName = fallbackTopicName
	}

	var questions []string
	switch mode {
	case ModeIntermediate:
		questions = []string{
			fmt.Sprintf("Como posso aplicar %s em um projeto real?", topicName),
			fmt.Sprintf("Quais são as melhores práticas para %s?", topicName),
			fmt.Sprintf("Existe algum problema comum ao usar %s e como resolvê-lo?", topicName),
		}
	case ModeAdvanced:
		questions = []string{
			fmt.Sprintf("Explique as nuances avançadas de %s.", topicName),
			fmt.Sprintf("Quais são os casos de uso complexos para %s?", topicName),
			fmt.Sprintf("Compare %s com tecnologias alternativas.", topicName),
		}
	default:
		questions = []string{
			fmt.Sprintf("O que é %s?", topicName),
			fmt.Sprintf("Quais os conceitos básicos de %s?", topicName),
			fmt.Sprintf("Poderia dar um exemplo simples de %s?", topicName),
		}
	}

	return append(questions,
		"Poderia me dar um exercício sobre o tema atual?",
		"Quais os próximos passos na trilha de aprendizado?",
	)
}
