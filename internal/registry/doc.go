// Package registry хранит зарегистрированные targets и проверяет запросы на выполнение.
//
// # Registry
//
// Таблица target → Factory. Factory создаёт экземпляр target'а (Operations)
// для каждой попытки; Operations сопоставляет имя операции с Handler.
// Registry строится один раз при старте процесса (см. internal/jobs),
// после этого только читается. Рефлексии нет: имя операции ищется в таблице.
//
//	reg := registry.New()
//	reg.Register("echo", registry.Operations{
//	    "echo": func(ctx context.Context, args []any) (any, error) { return args, nil },
//	})
//
// # Validator
//
// Validator — строгий фильтр перед выполнением. Проверки по порядку:
//
//  1. target есть в AllowList            — иначе "unauthorized target"
//  2. target зарегистрирован в Registry  — иначе "target does not exist"
//  3. операция не из ForbiddenOperations — иначе "forbidden operation"
//
// Перед сравнением оба идентификатора проходят Sanitize: удаляются
// управляющие символы и символы разметки, остальное не меняется.
// Validate не имеет побочных эффектов; ошибки — *domain.JobError с Retryable=false.
package registry
