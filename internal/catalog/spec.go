package catalog

// Модель спецификации оператора.
//
// Операторы поставляются третьими сторонами как дерево исходников с
// манифестом (scena.yaml), описывающим образ контейнера, команды,
// параметры и привязки входных и выходных файлов. Спецификации
// неизменяемы: каталог хранит и выдаёт их как значения.

// InputFile — привязка входного файла оператора.
type InputFile struct {
	// Src — ссылка на источник в формате "<схема>::<идентификатор>".
	// Схемы: store (глобальный каталог данных), rundir (директория
	// workflow-запуска), context (обмен между задачами), url
	// (зарезервирована).
	Src string `yaml:"src" json:"src"`

	// Type — идентификатор типа файла.
	Type string `yaml:"type,omitempty" json:"type,omitempty"`

	// Dst — относительный путь файла внутри контейнера.
	Dst string `yaml:"dst" json:"dst"`
}

// OutputFile — привязка выходного файла оператора.
type OutputFile struct {
	// Src — относительный путь файла внутри контейнера.
	Src string `yaml:"src" json:"src"`

	// Type — идентификатор типа файла.
	Type string `yaml:"type,omitempty" json:"type,omitempty"`

	// Dst — назначения файла в том же формате "<схема>::<идентификатор>".
	// Файл может расходиться в несколько назначений: например, в
	// постоянное хранилище и под меткой для последующих задач.
	Dst []string `yaml:"dst" json:"dst"`
}

// Parameter — объявление параметра оператора.
type Parameter struct {
	// Name — уникальное имя параметра; команды ссылаются на него
	// подстановкой $name.
	Name string `yaml:"name" json:"name"`

	// Type — тип значения: "str", "int" или "float".
	Type string `yaml:"type" json:"type"`

	// Default — значение по умолчанию, если аргумент не передан.
	Default any `yaml:"default,omitempty" json:"default,omitempty"`
}

// OperatorFiles — группировка файловых привязок оператора.
type OperatorFiles struct {
	Inputs  []InputFile  `yaml:"inputs,omitempty" json:"inputs,omitempty"`
	Outputs []OutputFile `yaml:"outputs,omitempty" json:"outputs,omitempty"`
}

// OperatorSpec — спецификация оператора.
type OperatorSpec struct {
	// Name — уникальное в пределах манифеста имя оператора.
	Name string `yaml:"name" json:"name"`

	// Image — идентификатор образа контейнера. Может ссылаться на
	// существующий образ или на образ, собираемый по директиве
	// манифеста.
	Image string `yaml:"image" json:"image"`

	// Commands — shell-команды, исполняемые в контейнере по порядку.
	Commands []string `yaml:"commands" json:"commands"`

	// Env — переменные окружения контейнера.
	Env map[string]string `yaml:"env,omitempty" json:"env,omitempty"`

	// Files — привязки входных и выходных файлов.
	Files OperatorFiles `yaml:"files,omitempty" json:"files,omitempty"`

	// Parameters — объявления параметров.
	Parameters []Parameter `yaml:"parameters,omitempty" json:"parameters,omitempty"`
}

// ImageFile — файл исходников, копируемый в собираемый образ.
type ImageFile struct {
	Src string `yaml:"src" json:"src"`
	Dst string `yaml:"dst" json:"dst"`
}

// ImageDirective — директива сборки образа контейнера.
type ImageDirective struct {
	// Tag — тег собираемого образа.
	Tag string `yaml:"tag" json:"tag"`

	// BaseImage — тег базового образа.
	BaseImage string `yaml:"baseImage" json:"baseImage"`

	// Requirements — пакеты, устанавливаемые поверх питоновских
	// базовых образов.
	Requirements []string `yaml:"requirements,omitempty" json:"requirements,omitempty"`

	// Files — файлы исходников, копируемые в образ.
	Files []ImageFile `yaml:"files,omitempty" json:"files,omitempty"`
}

// Manifest — содержимое файла спецификации scena.yaml.
type Manifest struct {
	// Version — версия, присваиваемая всем операторам манифеста.
	Version string `yaml:"version,omitempty" json:"version,omitempty"`

	// Namespace — необязательное пространство имён; идентификаторы
	// операторов получают вид "{namespace}.{name}".
	Namespace string `yaml:"namespace,omitempty" json:"namespace,omitempty"`

	// Operators — спецификации операторов.
	Operators []OperatorSpec `yaml:"operators" json:"operators"`

	// DockerImages — директивы сборки образов для операторов.
	DockerImages []ImageDirective `yaml:"dockerImages,omitempty" json:"dockerImages,omitempty"`
}

// OpID возвращает идентификатор оператора с учётом пространства имён
// манифеста: "{namespace}.{name}" либо просто "{name}".
func (m *Manifest) OpID(name string) string {
	if m.Namespace == "" {
		return name
	}
	return m.Namespace + "." + name
}
