package inactive

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"tejanitos/cmd/client/cmd/output"
	"tejanitos/cmd/client/cmd/types"
	"tejanitos/internal/app/client/data"
	"tejanitos/internal/domain/conflict"
	"tejanitos/internal/domain/student"
)

var strategyFlag string

var RestoreCmd = &cobra.Command{
	Use:   "restore <id|hexId>",
	Short: "Вернуть выбывшего ученика",
	Long: `Возвращает выбывшего ученика в активные.

Если среди активных уже есть ученик с тем же ФИО, нужно выбрать стратегию:
  keepActive   оставить активную запись
  keepInactive взять данные выбывшей записи
  merge        дополнить активную запись непустыми полями выбывшей
  custom       выбрать значение каждого отличающегося поля

Без --strategy в терминале стратегия запрашивается интерактивно.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := types.AppFrom(cmd)
		if err != nil {
			return err
		}

		var strategy conflict.Strategy
		if strategyFlag != "" {
			if strategy, err = conflict.ParseStrategy(strategyFlag); err != nil {
				return err
			}
		}

		ctx := cmd.Context()
		res := app.Data().RestoreInactive(ctx, args[0], strategy, nil)

		if res.Duplicate && !res.Success && res.Error == "" {
			if !term.IsTerminal(int(os.Stdin.Fd())) {
				return fmt.Errorf("найден активный ученик с тем же ФИО (%s), укажите --strategy", res.ExistingStudent.Documento)
			}

			in := bufio.NewReader(os.Stdin)
			strategy, custom, err := askStrategy(in, os.Stdout, *res.ExistingStudent, *res.InactiveStudent)
			if err != nil {
				return err
			}
			res = app.Data().RestoreInactive(ctx, args[0], strategy, custom)
		}
		app.Data().Wait()

		return report(res)
	},
}

func report(res data.RestoreResult) error {
	if output.JSON {
		return output.PrintJSON(res)
	}
	if !res.Success {
		return fmt.Errorf("восстановление не выполнено: %s", res.Error)
	}
	if res.Merged {
		output.Success("Записи объединены, активная запись %s", res.Student.Documento)
		return nil
	}
	output.Success("Ученик %s возвращен в активные", res.Student.Documento)
	return nil
}

// askStrategy показывает отличия двух записей и спрашивает стратегию.
func askStrategy(in *bufio.Reader, out io.Writer, active, inactive student.Student) (conflict.Strategy, map[string]string, error) {
	diffs := conflict.Diffs(active, inactive)

	fmt.Fprintln(out, color.YellowString("Найден активный ученик с тем же ФИО:"))
	for _, d := range diffs {
		fmt.Fprintf(out, "  %-18s активная: %-24s выбывшая: %s\n", d.Field, d.Active, d.Inactive)
	}
	fmt.Fprintln(out)
	for i, st := range conflict.Strategies {
		fmt.Fprintf(out, "  %d) %s\n", i+1, st)
	}
	fmt.Fprint(out, "Стратегия: ")

	line, err := in.ReadString('\n')
	if err != nil && line == "" {
		return "", nil, fmt.Errorf("ошибка чтения ответа: %w", err)
	}

	strategy, err := pick(strings.TrimSpace(line))
	if err != nil {
		return "", nil, err
	}
	if strategy != conflict.Custom {
		return strategy, nil, nil
	}

	choices := make(map[string]bool, len(diffs))
	for _, d := range diffs {
		fmt.Fprintf(out, "%s: [a]ктивная %q / [в]ыбывшая %q: ", d.Field, d.Active, d.Inactive)
		answer, _ := in.ReadString('\n')
		switch strings.ToLower(strings.TrimSpace(answer)) {
		case "в", "v", "i":
			choices[d.Field] = true
		}
	}
	return strategy, conflict.Pick(active, inactive, choices), nil
}

func pick(answer string) (conflict.Strategy, error) {
	if n, err := strconv.Atoi(answer); err == nil {
		if n < 1 || n > len(conflict.Strategies) {
			return "", fmt.Errorf("нет стратегии с номером %d", n)
		}
		return conflict.Strategies[n-1], nil
	}
	return conflict.ParseStrategy(answer)
}

func init() {
	RestoreCmd.Flags().StringVarP(&strategyFlag, "strategy", "s", "", "стратегия при дубликате: keepActive, keepInactive, merge, custom")
}
